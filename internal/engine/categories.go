package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
)

// CategoryInput carries the editable fields of a category. The balance is
// never editable; it only changes through income, payments and withdrawals.
type CategoryInput struct {
	Name       string
	Percentage float64
	Color      string
	Icon       string
	MaxAmount  *decimal.Decimal
	Priority   *int
}

// PriorityUpdate sets the fill order and cap of one category.
type PriorityUpdate struct {
	ID        string
	Priority  int
	MaxAmount *decimal.Decimal
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// AddCategory appends a new empty category.
func (e *Engine) AddCategory(b core.Budget, in CategoryInput) (core.Budget, core.Category, error) {
	c := core.Category{
		ID:     e.newID(),
		Amount: decimal.Zero,
	}
	applyInput(&c, in)
	if err := c.Validate(); err != nil {
		return b, core.Category{}, err
	}
	if err := e.checkCategory(b, c); err != nil {
		return b, core.Category{}, err
	}
	next := b.Clone()
	next.Categories = append(next.Categories, c)
	return next, c, nil
}

// UpdateCategory replaces the editable fields of an existing category and
// keeps its balance.
func (e *Engine) UpdateCategory(b core.Budget, id string, in CategoryInput) (core.Budget, core.Category, error) {
	idx := b.CategoryIndex(id)
	if idx < 0 {
		return b, core.Category{}, core.ErrCategoryNotFound
	}
	next := b.Clone()
	c := next.Categories[idx]
	applyInput(&c, in)
	if err := c.Validate(); err != nil {
		return b, core.Category{}, err
	}
	if err := e.checkCategory(b, c); err != nil {
		return b, core.Category{}, err
	}
	next.Categories[idx] = c
	return next, c, nil
}

// DeleteCategory removes a category and hands its balance to Savings, or
// proportionally by percentage to the remaining categories when there is no
// Savings category. When every remaining percentage is zero the balance is
// split evenly.
func (e *Engine) DeleteCategory(b core.Budget, id string) (core.Budget, core.Category, error) {
	idx := b.CategoryIndex(id)
	if idx < 0 {
		return b, core.Category{}, core.ErrCategoryNotFound
	}
	removed := b.Categories[idx]
	next := b.Clone()
	next.Categories = append(next.Categories[:idx:idx], next.Categories[idx+1:]...)

	freed := removed.Amount
	if !freed.IsPositive() {
		return next, removed, nil
	}
	if len(next.Categories) == 0 {
		return b, core.Category{}, fmt.Errorf("%w: %s held by the last category", core.ErrStrandedFunds, core.FormatAmount(freed))
	}
	if savings, ok := next.CategoryByName(core.SavingsName); ok {
		i := next.CategoryIndex(savings.ID)
		next.Categories[i].Amount = next.Categories[i].Amount.Add(freed)
		return next, removed, nil
	}
	redistribute(next.Categories, freed)
	return next, removed, nil
}

// redistribute spreads amount by percentage share. The last category takes
// whatever rounding left so the parts always sum to amount.
func redistribute(categories []core.Category, amount decimal.Decimal) {
	total := 0.0
	for _, c := range categories {
		total += c.Percentage
	}
	left := amount
	for i := range categories {
		var part decimal.Decimal
		switch {
		case i == len(categories)-1:
			part = left
		case total > 0:
			part = amount.Mul(decimal.NewFromFloat(categories[i].Percentage)).Div(decimal.NewFromFloat(total))
		default:
			part = amount.Div(decimal.NewFromInt(int64(len(categories))))
		}
		categories[i].Amount = categories[i].Amount.Add(part)
		left = left.Sub(part)
	}
}

// UpdatePriorities applies fill order and caps in one step.
func (e *Engine) UpdatePriorities(b core.Budget, updates []PriorityUpdate) (core.Budget, error) {
	next := b.Clone()
	for _, u := range updates {
		idx := next.CategoryIndex(u.ID)
		if idx < 0 {
			return b, fmt.Errorf("category %q: %w", u.ID, core.ErrCategoryNotFound)
		}
		if u.MaxAmount != nil && u.MaxAmount.IsNegative() {
			return b, core.ErrInvalidAmount
		}
		if u.Priority < 1 {
			return b, fmt.Errorf("category %q: %w", u.ID, core.ErrInvalidPriority)
		}
		p := u.Priority
		next.Categories[idx].Priority = &p
		next.Categories[idx].MaxAmount = copyDecimal(u.MaxAmount)
	}
	return next, nil
}

// MoveCategory swaps a category with its neighbour in fill order and
// renumbers every priority from 1.
func (e *Engine) MoveCategory(b core.Budget, id string, dir Direction) (core.Budget, error) {
	if b.CategoryIndex(id) < 0 {
		return b, core.ErrCategoryNotFound
	}
	next := b.Clone()
	order := waterfallOrder(next.Categories)
	pos := -1
	for i, idx := range order {
		if next.Categories[idx].ID == id {
			pos = i
			break
		}
	}
	switch dir {
	case Up:
		if pos > 0 {
			order[pos], order[pos-1] = order[pos-1], order[pos]
		}
	case Down:
		if pos < len(order)-1 {
			order[pos], order[pos+1] = order[pos+1], order[pos]
		}
	default:
		return b, fmt.Errorf("unknown direction %q", dir)
	}
	for rank, idx := range order {
		p := rank + 1
		next.Categories[idx].Priority = &p
	}
	return next, nil
}

func (e *Engine) checkCategory(b core.Budget, c core.Category) error {
	name := strings.TrimSpace(c.Name)
	total := decimal.NewFromFloat(c.Percentage)
	for _, other := range b.Categories {
		if other.ID == c.ID {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(other.Name), name) {
			return core.ErrDuplicateName
		}
		total = total.Add(decimal.NewFromFloat(other.Percentage))
	}
	if e.strictPercentages && total.GreaterThan(decimal.NewFromInt(100)) {
		return core.ErrPercentageOverflow
	}
	return nil
}

func applyInput(c *core.Category, in CategoryInput) {
	c.Name = strings.TrimSpace(in.Name)
	c.Percentage = in.Percentage
	c.Color = in.Color
	c.Icon = in.Icon
	c.MaxAmount = copyDecimal(in.MaxAmount)
	if in.Priority != nil {
		p := *in.Priority
		c.Priority = &p
	} else {
		c.Priority = nil
	}
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
