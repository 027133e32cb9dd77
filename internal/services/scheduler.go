package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/log"
)

// DefaultLookahead is how far ahead the pre-warning pass looks for payments
// that would fail.
const DefaultLookahead = 3 * time.Minute

// LowFundsWarning reports a payment that is about to fall due and would not
// be covered by the current balances.
type LowFundsWarning struct {
	PaymentID   string          `json:"paymentId"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueIn       time.Duration   `json:"dueIn"`
	Remaining   decimal.Decimal `json:"remaining"`
	Reason      error           `json:"-"`
}

// FiredPayment is the result of one due payment in a tick.
type FiredPayment struct {
	// Payment is the definition after its state transition.
	Payment     core.ScheduledPayment
	Transaction *core.Transaction
	Err         error
}

func (f FiredPayment) Succeeded() bool {
	return f.Err == nil
}

// TickReport describes one scheduler evaluation.
type TickReport struct {
	Budget   core.Budget
	Warnings []LowFundsWarning
	Fired    []FiredPayment
}

// Changed reports whether any payment fired, successfully or not.
func (r TickReport) Changed() bool {
	return len(r.Fired) > 0
}

// Scheduler evaluates scheduled payments against a budget snapshot.
// It never touches shared state: callers commit TickReport.Budget.
type Scheduler struct {
	engine    *engine.Engine
	lookahead time.Duration
	logger    *log.Logger
}

func NewScheduler(e *engine.Engine, lookahead time.Duration, logger *log.Logger) *Scheduler {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Scheduler{
		engine:    e,
		lookahead: lookahead,
		logger:    logger.WithComponent(log.ComponentScheduler),
	}
}

// Tick runs the pre-warning pass and then the due pass.
func (s *Scheduler) Tick(ctx context.Context, b core.Budget, now time.Time) TickReport {
	warnings := s.Warnings(ctx, b, now)
	report := s.RunDue(ctx, b, now)
	report.Warnings = warnings
	return report
}

// Warnings simulates every active payment due within the lookahead window
// and returns the ones that would fail. b is not modified.
func (s *Scheduler) Warnings(ctx context.Context, b core.Budget, now time.Time) []LowFundsWarning {
	var warnings []LowFundsWarning
	horizon := now.Add(s.lookahead)
	for _, p := range b.ScheduledPayments {
		if !p.Active || !p.NextDate.After(now) || p.NextDate.After(horizon) {
			continue
		}
		_, err := s.engine.ProcessPayment(b, paymentRequest(p, now))
		if err == nil {
			continue
		}
		remaining, ok := core.RemainingFromError(err)
		if !ok {
			remaining = p.Amount
		}
		w := LowFundsWarning{
			PaymentID:   p.ID,
			Description: p.Description,
			Amount:      p.Amount,
			DueIn:       p.NextDate.Sub(now),
			Remaining:   remaining,
			Reason:      err,
		}
		s.logger.WarnContext(ctx, "Scheduled payment would fail",
			log.FieldPaymentID, p.ID,
			log.FieldAmount, p.Amount.StringFixed(2),
			log.FieldRemaining, remaining.StringFixed(2),
			"due_in", w.DueIn.String())
		warnings = append(warnings, w)
	}
	return warnings
}

// RunDue fires every active payment whose next date is not after now, oldest
// first, each at most once. All transitions are applied to a single copy of
// b which the caller commits once.
func (s *Scheduler) RunDue(ctx context.Context, b core.Budget, now time.Time) TickReport {
	report := TickReport{Budget: b}

	due := dueIndexes(b, now)
	if len(due) == 0 {
		return report
	}

	next := b.Clone()
	for _, idx := range due {
		p := next.ScheduledPayments[idx]
		res, err := s.engine.ProcessPayment(next, paymentRequest(p, now))
		if err != nil {
			next.ScheduledPayments[idx].Active = false
			next.ScheduledPayments[idx].Ended = core.EndedFailed
			report.Fired = append(report.Fired, FiredPayment{Payment: next.ScheduledPayments[idx], Err: err})

			remaining, _ := core.RemainingFromError(err)
			s.logger.WarnContext(ctx, "Scheduled payment failed, deactivated",
				log.FieldPaymentID, p.ID,
				log.FieldAmount, p.Amount.StringFixed(2),
				log.FieldRemaining, remaining.StringFixed(2),
				log.FieldError, err)
			continue
		}

		next = res.Budget
		updated := &next.ScheduledPayments[idx]
		if updated.Recurring {
			if err := s.advance(updated); err != nil {
				updated.Active = false
				updated.Ended = core.EndedFailed
				s.logger.ErrorContext(ctx, "Recurring payment has no valid frequency, deactivated",
					log.FieldPaymentID, p.ID,
					log.FieldError, err)
			}
		} else {
			updated.Active = false
			updated.Ended = core.EndedCompleted
		}

		tx := res.Transaction
		report.Fired = append(report.Fired, FiredPayment{Payment: *updated, Transaction: &tx})
		s.logger.InfoContext(ctx, "Scheduled payment processed",
			log.FieldPaymentID, p.ID,
			log.FieldTransactionID, tx.ID,
			log.FieldAmount, p.Amount.StringFixed(2),
			"categories", tx.Category,
			"next_date", updated.NextDate.Format(time.RFC3339),
			"active", updated.Active)
	}

	s.logger.InfoContext(ctx, "Scheduled payment processing complete",
		"processed", len(report.Fired),
		"total_scheduled", len(b.ScheduledPayments))

	report.Budget = next
	return report
}

func (s *Scheduler) advance(p *core.ScheduledPayment) error {
	a, err := GetAdvancer(p.Frequency)
	if err != nil {
		return err
	}
	p.NextDate = a.Next(p.NextDate)
	return nil
}

// dueIndexes returns the indexes of due payments ordered by next date.
func dueIndexes(b core.Budget, now time.Time) []int {
	var due []int
	for i, p := range b.ScheduledPayments {
		if p.IsDue(now) {
			due = append(due, i)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return b.ScheduledPayments[due[i]].NextDate.Before(b.ScheduledPayments[due[j]].NextDate)
	})
	return due
}

func paymentRequest(p core.ScheduledPayment, now time.Time) engine.PaymentRequest {
	return engine.PaymentRequest{
		Amount:      p.Amount,
		Description: p.Description,
		PreferredID: p.Category,
		FallbackIDs: p.FallbackCategories,
		At:          now,
	}
}

// WarningOutcome renders a low-funds warning for the notifier.
func WarningOutcome(w LowFundsWarning) core.Outcome {
	minutes := int(w.DueIn.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return core.Failure("Low funds warning",
		"Scheduled payment %q (%s) is due in %d min and is %s short",
		w.Description, core.FormatAmount(w.Amount), minutes, core.FormatAmount(w.Remaining))
}

// FiredOutcome renders the result of a fired payment for the notifier.
func FiredOutcome(f FiredPayment) core.Outcome {
	if f.Succeeded() {
		return core.Info("Scheduled payment processed", "%s payment completed: %s",
			core.FormatAmount(f.Payment.Amount), f.Payment.Description)
	}
	if errors.Is(f.Err, core.ErrInsufficientFunds) {
		return core.Failure("Scheduled payment failed", "Insufficient funds for %q; the payment has been deactivated",
			f.Payment.Description)
	}
	return core.Failure("Scheduled payment failed", "%q could not be paid (%v); the payment has been deactivated",
		f.Payment.Description, f.Err)
}
