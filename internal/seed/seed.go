// Package seed builds the default budget, optionally from a TOML file.
package seed

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
)

// File is the TOML layout of a seed file.
type File struct {
	InitialDeposit string     `toml:"initial_deposit"`
	Description    string     `toml:"description"`
	Categories     []Category `toml:"categories"`
}

type Category struct {
	ID         string  `toml:"id"`
	Name       string  `toml:"name"`
	Percentage float64 `toml:"percentage"`
	Amount     string  `toml:"amount"`
	Color      string  `toml:"color,omitempty"`
	Icon       string  `toml:"icon,omitempty"`
	MaxAmount  string  `toml:"max_amount,omitempty"`
	Priority   int     `toml:"priority,omitempty"`
}

// Default returns the built-in seed.
func Default() File {
	f := File{InitialDeposit: "1000", Description: "Initial deposit"}
	for _, c := range core.DefaultCategories() {
		sc := Category{
			ID:         c.ID,
			Name:       c.Name,
			Percentage: c.Percentage,
			Amount:     c.Amount.String(),
			Color:      c.Color,
			Icon:       c.Icon,
			Priority:   c.EffectivePriority(),
		}
		if c.MaxAmount != nil {
			sc.MaxAmount = c.MaxAmount.String()
		}
		f.Categories = append(f.Categories, sc)
	}
	return f
}

// Load reads a seed file, returning the built-in seed if it doesn't exist.
func Load(path string) (File, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return File{}, fmt.Errorf("reading seed: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing seed: %w", err)
	}
	if _, err := f.Budget(time.Now()); err != nil {
		return File{}, fmt.Errorf("invalid seed %s: %w", path, err)
	}
	return f, nil
}

// Save writes a seed file.
func Save(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating seed dir: %w", err)
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating seed file: %w", err)
	}
	defer out.Close()

	return toml.NewEncoder(out).Encode(f)
}

// Budget converts the seed into a budget whose initial deposit is dated a
// week before now. The total balance is the sum of the category amounts.
func (f File) Budget(now time.Time) (core.Budget, error) {
	b := core.Budget{
		Categories:        make([]core.Category, 0, len(f.Categories)),
		Transactions:      []core.Transaction{},
		ScheduledPayments: []core.ScheduledPayment{},
	}
	if len(f.Categories) == 0 {
		return core.Budget{}, fmt.Errorf("no categories")
	}

	seen := make(map[string]bool, len(f.Categories))
	total := decimal.Zero
	for i, sc := range f.Categories {
		id := sc.ID
		if id == "" {
			id = fmt.Sprint(i + 1)
		}
		if seen[id] {
			return core.Budget{}, fmt.Errorf("category %q: duplicate id", id)
		}
		seen[id] = true

		amount := decimal.Zero
		if sc.Amount != "" {
			a, err := decimal.NewFromString(sc.Amount)
			if err != nil || a.IsNegative() {
				return core.Budget{}, fmt.Errorf("category %q: %w", sc.Name, core.ErrInvalidAmount)
			}
			amount = a
		}
		c := core.Category{
			ID:         id,
			Name:       sc.Name,
			Percentage: sc.Percentage,
			Amount:     amount,
			Color:      sc.Color,
			Icon:       sc.Icon,
		}
		if sc.MaxAmount != "" {
			m, err := decimal.NewFromString(sc.MaxAmount)
			if err != nil {
				return core.Budget{}, fmt.Errorf("category %q: %w", sc.Name, core.ErrInvalidAmount)
			}
			c.MaxAmount = &m
		}
		if sc.Priority > 0 {
			p := sc.Priority
			c.Priority = &p
		}
		if err := c.Validate(); err != nil {
			return core.Budget{}, fmt.Errorf("category %q: %w", sc.Name, err)
		}
		total = total.Add(amount)
		b.Categories = append(b.Categories, c)
	}
	b.TotalBalance = total

	if f.InitialDeposit != "" {
		deposit, err := decimal.NewFromString(f.InitialDeposit)
		if err != nil {
			return core.Budget{}, fmt.Errorf("initial deposit: %w", core.ErrInvalidAmount)
		}
		if deposit.IsPositive() {
			desc := f.Description
			if desc == "" {
				desc = "Initial deposit"
			}
			b.Transactions = append(b.Transactions, core.Transaction{
				ID:          "1",
				Amount:      deposit,
				Type:        core.Income,
				Date:        now.Add(-7 * 24 * time.Hour),
				Description: desc,
			})
		}
	}
	return b, nil
}

// Fallback returns a constructor of the default budget for storage.Repository.
// A seed that fails to convert falls back to core.DefaultBudget.
func Fallback(f File) func() core.Budget {
	return func() core.Budget {
		now := time.Now()
		b, err := f.Budget(now)
		if err != nil {
			return core.DefaultBudget(now)
		}
		return b
	}
}
