package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
)

// Allocation is the outcome of distributing one income amount.
type Allocation struct {
	// Categories keeps the input order with updated balances.
	Categories []core.Category
	// Allocated maps category id to the amount it received, leftover included.
	Allocated map[string]decimal.Decimal
	// Leftover is the part the waterfall did not place and that went to SinkID.
	Leftover decimal.Decimal
	SinkID   string
}

// DistributeIncome runs the priority waterfall over categories.
//
// Categories are visited by ascending priority. Each takes its percentage of
// whatever is still unallocated when its turn comes, limited by the space
// left under its cap. Whatever remains afterwards goes to Savings or, when
// there is no Savings category, to the last uncapped category of the
// waterfall. ErrStrandedFunds is returned when no category can take it.
func DistributeIncome(categories []core.Category, amount decimal.Decimal) (Allocation, error) {
	if !amount.IsPositive() {
		return Allocation{}, core.ErrInvalidAmount
	}
	out := core.CloneCategories(categories)
	alloc := Allocation{
		Categories: out,
		Allocated:  make(map[string]decimal.Decimal, len(out)),
		Leftover:   decimal.Zero,
	}

	order := waterfallOrder(out)
	remaining := amount
	for _, i := range order {
		if !remaining.IsPositive() {
			break
		}
		c := &out[i]
		share := core.Share(remaining, c.Percentage)
		if c.IsCapped() {
			space := decimal.Max(decimal.Zero, c.MaxAmount.Sub(c.Amount))
			share = decimal.Min(space, share)
		}
		if !share.IsPositive() {
			continue
		}
		c.Amount = c.Amount.Add(share)
		remaining = remaining.Sub(share)
		alloc.Allocated[c.ID] = alloc.Allocated[c.ID].Add(share)
	}

	if remaining.IsPositive() {
		sink := leftoverSink(out, order)
		if sink < 0 {
			return Allocation{}, fmt.Errorf("%w: %s left after allocation", core.ErrStrandedFunds, remaining.StringFixed(2))
		}
		out[sink].Amount = out[sink].Amount.Add(remaining)
		alloc.Allocated[out[sink].ID] = alloc.Allocated[out[sink].ID].Add(remaining)
		alloc.Leftover = remaining
		alloc.SinkID = out[sink].ID
	}
	return alloc, nil
}

// waterfallOrder returns category indexes sorted by priority; ties keep
// their list order.
func waterfallOrder(categories []core.Category) []int {
	order := make([]int, len(categories))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return categories[order[a]].EffectivePriority() < categories[order[b]].EffectivePriority()
	})
	return order
}

func leftoverSink(categories []core.Category, order []int) int {
	for i, c := range categories {
		if c.Name == core.SavingsName {
			return i
		}
	}
	for j := len(order) - 1; j >= 0; j-- {
		if !categories[order[j]].IsCapped() {
			return order[j]
		}
	}
	return -1
}
