package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DailyUseName is never capped during allocation and is the first
	// source drained by payments without a preferred category.
	DailyUseName = "Daily Use"
	// SavingsName receives leftover income and funds freed by deleted categories.
	SavingsName = "Savings"

	// DefaultPriority is the fill order used when a category has none.
	DefaultPriority = 999
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// End reasons of a scheduled payment that can no longer be resumed.
const (
	EndedCompleted EndReason = "completed"
	EndedFailed    EndReason = "failed"
)

const (
	Income     TransactionType = "income"
	Withdrawal TransactionType = "withdrawal"
	Payment    TransactionType = "payment"
)

type (
	EndReason string
	Frequency string

	TransactionType string

	Category struct {
		ID         string           `json:"id"`
		Name       string           `json:"name"`
		Percentage float64          `json:"percentage"`
		Amount     decimal.Decimal  `json:"amount"`
		Color      string           `json:"color"`
		Icon       string           `json:"icon"`
		MaxAmount  *decimal.Decimal `json:"maxAmount,omitempty"`
		Priority   *int             `json:"priority,omitempty"` // lower fills first
	}

	Transaction struct {
		ID          string          `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category,omitempty"` // comma-joined ids for payments
		Date        time.Time       `json:"date"`
		Description string          `json:"description"`
	}

	ScheduledPayment struct {
		ID                 string          `json:"id"`
		Amount             decimal.Decimal `json:"amount"`
		Description        string          `json:"description"`
		Category           string          `json:"category"` // empty means Daily Use, then Savings
		FallbackCategories []string        `json:"fallbackCategories,omitempty"`
		NextDate           time.Time       `json:"nextDate"`
		Recurring          bool            `json:"recurring"`
		Frequency          Frequency       `json:"frequency,omitempty"`
		Time               string          `json:"time,omitempty"` // HH:MM
		Active             bool            `json:"active"`
		// Ended is set when a one-time payment completed or any fire failed.
		Ended              EndReason       `json:"ended,omitempty"`
	}

	// Budget is the aggregate root. Engine operations never modify a Budget
	// in place; they return an updated copy.
	Budget struct {
		TotalBalance      decimal.Decimal    `json:"totalBalance"`
		Categories        []Category         `json:"categories"`
		Transactions      []Transaction      `json:"transactions"`
		ScheduledPayments []ScheduledPayment `json:"scheduledPayments"`
	}
)

// IsValid reports whether f is one of the supported frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	default:
		return false
	}
}

// EffectivePriority returns the priority, or DefaultPriority when unset.
// Priorities start at 1; a stored 0 counts as unset.
func (c Category) EffectivePriority() int {
	if c.Priority == nil || *c.Priority == 0 {
		return DefaultPriority
	}
	return *c.Priority
}

// IsCapped reports whether allocation must respect MaxAmount.
// Daily Use is exempt even when a cap is configured.
func (c Category) IsCapped() bool {
	return c.MaxAmount != nil && c.Name != DailyUseName
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if c.Percentage < 0 || c.Percentage > 100 {
		return ErrInvalidPercentage
	}
	if c.MaxAmount != nil && c.MaxAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if c.Priority != nil && *c.Priority < 1 {
		return ErrInvalidPriority
	}
	return nil
}

// CategoryIDs splits the comma-joined category field of a payment.
func (t Transaction) CategoryIDs() []string {
	if t.Category == "" {
		return nil
	}
	return strings.Split(t.Category, ",")
}

func (p ScheduledPayment) Validate() error {
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.NextDate.IsZero() {
		return ErrInvalidDate
	}
	if p.Recurring && !p.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	return nil
}

// IsDue reports whether an active payment should fire at now.
func (p ScheduledPayment) IsDue(now time.Time) bool {
	return p.Active && !p.NextDate.After(now)
}

// CategoryIndex returns the index of the category with id, or -1.
func (b Budget) CategoryIndex(id string) int {
	for i, c := range b.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CategoryNames resolves the category ids of tx. Ids of deleted categories
// are returned unchanged.
func (b Budget) CategoryNames(tx Transaction) []string {
	ids := tx.CategoryIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if idx := b.CategoryIndex(id); idx >= 0 {
			names = append(names, b.Categories[idx].Name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

// CategoryByName returns the first category with the given name.
func (b Budget) CategoryByName(name string) (Category, bool) {
	for _, c := range b.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// ScheduledIndex returns the index of the scheduled payment with id, or -1.
func (b Budget) ScheduledIndex(id string) int {
	for i, p := range b.ScheduledPayments {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// CategoriesTotal sums the balances of every category.
func (b Budget) CategoriesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.Categories {
		total = total.Add(c.Amount)
	}
	return total
}

// Clone returns a deep copy that shares no slices or pointers with b.
func (b Budget) Clone() Budget {
	out := Budget{
		TotalBalance:      b.TotalBalance,
		Categories:        CloneCategories(b.Categories),
		Transactions:      append([]Transaction(nil), b.Transactions...),
		ScheduledPayments: make([]ScheduledPayment, len(b.ScheduledPayments)),
	}
	for i, p := range b.ScheduledPayments {
		p.FallbackCategories = append([]string(nil), p.FallbackCategories...)
		out.ScheduledPayments[i] = p
	}
	if out.Transactions == nil {
		out.Transactions = []Transaction{}
	}
	return out
}

// CloneCategories deep-copies a category list including optional fields.
func CloneCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, c := range in {
		if c.MaxAmount != nil {
			m := *c.MaxAmount
			c.MaxAmount = &m
		}
		if c.Priority != nil {
			p := *c.Priority
			c.Priority = &p
		}
		out[i] = c
	}
	return out
}
