package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCategories returns the seed categories used for a fresh budget.
func DefaultCategories() []Category {
	cat := func(id, name string, pct float64, amount int64, color, icon string, priority int, max int64) Category {
		p := priority
		c := Category{
			ID:         id,
			Name:       name,
			Percentage: pct,
			Amount:     decimal.NewFromInt(amount),
			Color:      color,
			Icon:       icon,
			Priority:   &p,
		}
		if max > 0 {
			m := decimal.NewFromInt(max)
			c.MaxAmount = &m
		}
		return c
	}
	return []Category{
		cat("1", SavingsName, 20, 200, "#3B82F6", "piggy-bank", 1, 0),
		cat("2", "Bills", 30, 300, "#EF4444", "receipt", 2, 500),
		cat("3", "Entertainment", 10, 100, "#F59E0B", "tv", 5, 200),
		cat("4", "Groceries", 15, 150, "#10B981", "shopping-cart", 3, 300),
		cat("5", "Investments", 15, 150, "#8B5CF6", "trending-up", 4, 1000),
		cat("6", DailyUseName, 10, 100, "#0D9488", "coffee", 6, 0),
	}
}

// DefaultBudget is the budget used when nothing is stored or the stored
// snapshot cannot be parsed.
func DefaultBudget(now time.Time) Budget {
	return Budget{
		TotalBalance: decimal.NewFromInt(1000),
		Categories:   DefaultCategories(),
		Transactions: []Transaction{
			{
				ID:          "1",
				Amount:      decimal.NewFromInt(1000),
				Type:        Income,
				Date:        now.Add(-7 * 24 * time.Hour),
				Description: "Initial deposit",
			},
		},
		ScheduledPayments: []ScheduledPayment{},
	}
}
