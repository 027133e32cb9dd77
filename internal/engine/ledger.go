package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
)

type IncomeResult struct {
	Budget      core.Budget
	Allocation  Allocation
	Transaction core.Transaction
}

// AddIncome distributes amount across the categories, raises the total
// balance by the same amount and records an income transaction.
func (e *Engine) AddIncome(b core.Budget, amount decimal.Decimal, description string, at time.Time) (IncomeResult, error) {
	if !amount.IsPositive() {
		return IncomeResult{Budget: b}, core.ErrInvalidAmount
	}
	alloc, err := DistributeIncome(b.Categories, amount)
	if err != nil {
		return IncomeResult{Budget: b}, err
	}
	tx := core.Transaction{
		ID:          e.newID(),
		Amount:      amount,
		Type:        core.Income,
		Date:        at,
		Description: description,
	}
	next := b.Clone()
	next.Categories = alloc.Categories
	next.TotalBalance = b.TotalBalance.Add(amount)
	next.Transactions = prepend(next.Transactions, tx)
	return IncomeResult{Budget: next, Allocation: alloc, Transaction: tx}, nil
}

type WithdrawalResult struct {
	Budget      core.Budget
	Category    core.Category
	Transaction core.Transaction
}

// Withdraw takes amount out of a single category. The whole amount must be
// available; partial withdrawals are rejected with the missing remainder.
func (e *Engine) Withdraw(b core.Budget, categoryID string, amount decimal.Decimal, description string, at time.Time) (WithdrawalResult, error) {
	if !amount.IsPositive() {
		return WithdrawalResult{Budget: b}, core.ErrInvalidAmount
	}
	idx := b.CategoryIndex(categoryID)
	if idx < 0 {
		return WithdrawalResult{Budget: b}, core.ErrCategoryNotFound
	}
	if b.Categories[idx].Amount.LessThan(amount) {
		return WithdrawalResult{Budget: b}, &core.InsufficientFundsError{
			Remaining:  amount.Sub(b.Categories[idx].Amount),
			CategoryID: categoryID,
		}
	}
	tx := core.Transaction{
		ID:          e.newID(),
		Amount:      amount,
		Type:        core.Withdrawal,
		Category:    categoryID,
		Date:        at,
		Description: description,
	}
	next := b.Clone()
	next.Categories[idx].Amount = next.Categories[idx].Amount.Sub(amount)
	next.TotalBalance = b.TotalBalance.Sub(amount)
	next.Transactions = prepend(next.Transactions, tx)
	return WithdrawalResult{Budget: next, Category: next.Categories[idx], Transaction: tx}, nil
}

// TransactionFilter narrows a history query.
type TransactionFilter struct {
	Type  core.TransactionType
	Limit int
}

// History returns the ledger newest first, filtered by type and limited.
func History(b core.Budget, f TransactionFilter) []core.Transaction {
	out := make([]core.Transaction, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		out = append(out, tx)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
