package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryShare is a category balance with its share of the total balance.
type CategoryShare struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Amount  decimal.Decimal `json:"amount"`
	Share   float64         `json:"share"` // percent of TotalBalance
	Capped  bool            `json:"capped"`
	AtLimit bool            `json:"atLimit"`
}

// Summary is the dashboard view of a budget.
type Summary struct {
	TotalBalance     decimal.Decimal   `json:"totalBalance"`
	DailyBalance     decimal.Decimal   `json:"dailyBalance"`
	LastTransaction  *time.Time        `json:"lastTransaction,omitempty"`
	Categories       []CategoryShare   `json:"categories"`
	ActiveScheduled  int               `json:"activeScheduled"`
	NextScheduled    *ScheduledPayment `json:"nextScheduled,omitempty"`
	UnallocatedFunds decimal.Decimal   `json:"unallocatedFunds"`
}

// Summarize builds the dashboard summary for b.
func Summarize(b Budget) Summary {
	s := Summary{
		TotalBalance: b.TotalBalance,
		DailyBalance: decimal.Zero,
		Categories:   make([]CategoryShare, 0, len(b.Categories)),
	}
	if daily, ok := b.CategoryByName(DailyUseName); ok {
		s.DailyBalance = daily.Amount
	}
	if len(b.Transactions) > 0 {
		d := b.Transactions[0].Date
		s.LastTransaction = &d
	}
	for _, c := range b.Categories {
		share := CategoryShare{
			ID:     c.ID,
			Name:   c.Name,
			Amount: c.Amount,
			Share:  Ratio(c.Amount, b.TotalBalance),
			Capped: c.IsCapped(),
		}
		if share.Capped {
			share.AtLimit = c.Amount.GreaterThanOrEqual(*c.MaxAmount)
		}
		s.Categories = append(s.Categories, share)
	}
	for i, p := range b.ScheduledPayments {
		if !p.Active {
			continue
		}
		s.ActiveScheduled++
		if s.NextScheduled == nil || p.NextDate.Before(s.NextScheduled.NextDate) {
			next := b.ScheduledPayments[i]
			s.NextScheduled = &next
		}
	}
	s.UnallocatedFunds = b.TotalBalance.Sub(b.CategoriesTotal())
	return s
}
