package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
)

// PaymentRequest describes an outgoing payment.
type PaymentRequest struct {
	Amount      decimal.Decimal
	Description string
	// PreferredID is drained first. When empty, Daily Use and then Savings are used.
	PreferredID string
	// FallbackIDs are drained in order while the payment is still unmet.
	FallbackIDs []string
	At          time.Time
}

// Drain records how much a single category contributed.
type Drain struct {
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
}

type PaymentResult struct {
	Budget      core.Budget
	Drains      []Drain
	Transaction core.Transaction
}

// ProcessPayment satisfies a payment by draining categories in order:
// the preferred category (or Daily Use then Savings), then each fallback.
// A drained source is never revisited and nothing is rolled back because
// the drains are computed on a copy. On success the copy is returned with a
// single payment transaction listing every touched category. When the
// remainder exceeds core.Epsilon the input budget is returned unchanged with
// an *core.InsufficientFundsError.
func (e *Engine) ProcessPayment(b core.Budget, req PaymentRequest) (PaymentResult, error) {
	if !req.Amount.IsPositive() {
		return PaymentResult{Budget: b}, core.ErrInvalidAmount
	}
	sources, err := paymentSources(b, req.PreferredID, req.FallbackIDs)
	if err != nil {
		return PaymentResult{Budget: b}, err
	}

	categories := core.CloneCategories(b.Categories)
	remaining := req.Amount
	var drains []Drain
	for _, idx := range sources {
		if !remaining.IsPositive() {
			break
		}
		c := &categories[idx]
		take := decimal.Min(c.Amount, remaining)
		if !take.IsPositive() {
			continue
		}
		c.Amount = c.Amount.Sub(take)
		remaining = remaining.Sub(take)
		drains = appendDrain(drains, c.ID, take)
	}

	if remaining.GreaterThan(core.Epsilon) {
		return PaymentResult{Budget: b}, &core.InsufficientFundsError{Remaining: remaining}
	}

	ids := make([]string, len(drains))
	for i, d := range drains {
		ids[i] = d.CategoryID
	}
	tx := core.Transaction{
		ID:          e.newID(),
		Amount:      req.Amount,
		Type:        core.Payment,
		Category:    strings.Join(ids, ","),
		Date:        req.At,
		Description: req.Description,
	}

	next := b.Clone()
	next.Categories = categories
	next.TotalBalance = b.TotalBalance.Sub(req.Amount)
	next.Transactions = prepend(next.Transactions, tx)
	return PaymentResult{Budget: next, Drains: drains, Transaction: tx}, nil
}

// paymentSources resolves the draining order into category indexes.
func paymentSources(b core.Budget, preferredID string, fallbackIDs []string) ([]int, error) {
	var sources []int
	if preferredID != "" {
		idx := b.CategoryIndex(preferredID)
		if idx < 0 {
			return nil, fmt.Errorf("preferred category %q: %w", preferredID, core.ErrCategoryNotFound)
		}
		sources = append(sources, idx)
	} else {
		for _, name := range []string{core.DailyUseName, core.SavingsName} {
			if c, ok := b.CategoryByName(name); ok {
				sources = append(sources, b.CategoryIndex(c.ID))
			}
		}
	}
	for _, id := range fallbackIDs {
		if id == "" {
			continue
		}
		idx := b.CategoryIndex(id)
		if idx < 0 {
			return nil, fmt.Errorf("fallback category %q: %w", id, core.ErrCategoryNotFound)
		}
		sources = append(sources, idx)
	}
	return sources, nil
}

func appendDrain(drains []Drain, id string, amount decimal.Decimal) []Drain {
	for i := range drains {
		if drains[i].CategoryID == id {
			drains[i].Amount = drains[i].Amount.Add(amount)
			return drains
		}
	}
	return append(drains, Drain{CategoryID: id, Amount: amount})
}

func prepend(txs []core.Transaction, tx core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs)+1)
	out = append(out, tx)
	return append(out, txs...)
}
