package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
)

type ScheduleRequest struct {
	Amount      decimal.Decimal
	Description string
	Date        time.Time
	Recurring   bool
	Frequency   core.Frequency
	PreferredID string
	FallbackIDs []string
}

// SchedulePayment registers an active payment due at req.Date. Newest
// schedules come first.
func (e *Engine) SchedulePayment(b core.Budget, req ScheduleRequest) (core.Budget, core.ScheduledPayment, error) {
	p := core.ScheduledPayment{
		ID:                 e.newID(),
		Amount:             req.Amount,
		Description:        req.Description,
		Category:           req.PreferredID,
		FallbackCategories: append([]string(nil), req.FallbackIDs...),
		NextDate:           req.Date,
		Recurring:          req.Recurring,
		Time:               req.Date.Format("15:04"),
		Active:             true,
	}
	if req.Recurring {
		p.Frequency = req.Frequency
	}
	if err := p.Validate(); err != nil {
		return b, core.ScheduledPayment{}, err
	}
	if _, err := paymentSources(b, p.Category, p.FallbackCategories); err != nil {
		return b, core.ScheduledPayment{}, err
	}

	next := b.Clone()
	next.ScheduledPayments = append([]core.ScheduledPayment{p}, next.ScheduledPayments...)
	return next, p, nil
}

// ToggleScheduled pauses or resumes a scheduled payment. A payment that
// completed or failed stays inactive.
func (e *Engine) ToggleScheduled(b core.Budget, id string, active bool) (core.Budget, core.ScheduledPayment, error) {
	idx := b.ScheduledIndex(id)
	if idx < 0 {
		return b, core.ScheduledPayment{}, fmt.Errorf("scheduled payment %q: %w", id, core.ErrScheduledPaymentNotFound)
	}
	if active && b.ScheduledPayments[idx].Ended != "" {
		return b, core.ScheduledPayment{}, fmt.Errorf("scheduled payment %q %s: %w", id, b.ScheduledPayments[idx].Ended, core.ErrScheduledPaymentEnded)
	}
	next := b.Clone()
	next.ScheduledPayments[idx].Active = active
	return next, next.ScheduledPayments[idx], nil
}

// CancelScheduled removes a scheduled payment whatever its state.
func (e *Engine) CancelScheduled(b core.Budget, id string) (core.Budget, core.ScheduledPayment, error) {
	idx := b.ScheduledIndex(id)
	if idx < 0 {
		return b, core.ScheduledPayment{}, fmt.Errorf("scheduled payment %q: %w", id, core.ErrScheduledPaymentNotFound)
	}
	removed := b.ScheduledPayments[idx]
	next := b.Clone()
	next.ScheduledPayments = append(next.ScheduledPayments[:idx:idx], next.ScheduledPayments[idx+1:]...)
	return next, removed, nil
}
