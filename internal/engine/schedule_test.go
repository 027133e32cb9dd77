package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
)

func TestSchedulePayment(t *testing.T) {
	due := time.Date(2025, 3, 20, 18, 45, 0, 0, time.UTC)

	tests := []struct {
		name    string
		req     ScheduleRequest
		wantErr error
	}{
		{
			name: "one-time",
			req:  ScheduleRequest{Amount: dec("20"), Description: "Gym", Date: due},
		},
		{
			name: "recurring with fallbacks",
			req: ScheduleRequest{
				Amount: dec("20"), Description: "Rent", Date: due, Recurring: true,
				Frequency: core.Monthly, PreferredID: "2", FallbackIDs: []string{"1"},
			},
		},
		{
			name:    "non-positive amount",
			req:     ScheduleRequest{Amount: dec("0"), Date: due},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "missing date",
			req:     ScheduleRequest{Amount: dec("1")},
			wantErr: core.ErrInvalidDate,
		},
		{
			name:    "recurring without frequency",
			req:     ScheduleRequest{Amount: dec("1"), Date: due, Recurring: true},
			wantErr: core.ErrInvalidFrequency,
		},
		{
			name:    "unknown fallback",
			req:     ScheduleRequest{Amount: dec("1"), Date: due, FallbackIDs: []string{"zzz"}},
			wantErr: core.ErrCategoryNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			b := core.DefaultBudget(testNow)

			next, p, err := e.SchedulePayment(b, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, next.ScheduledPayments)
				return
			}
			require.NoError(t, err)
			require.Len(t, next.ScheduledPayments, 1)
			assert.Equal(t, p, next.ScheduledPayments[0])
			assert.True(t, p.Active)
			assert.Equal(t, "18:45", p.Time)
			assert.Equal(t, due, p.NextDate)
			assert.Equal(t, tt.req.Recurring, p.Recurring)
			if tt.req.Recurring {
				assert.Equal(t, tt.req.Frequency, p.Frequency)
			} else {
				assert.Empty(t, p.Frequency)
			}
			assert.Empty(t, b.ScheduledPayments)
		})
	}
}

func TestSchedulePayment_IgnoresFrequencyForOneTime(t *testing.T) {
	e := newTestEngine()
	_, p, err := e.SchedulePayment(core.DefaultBudget(testNow), ScheduleRequest{
		Amount: dec("3"), Date: testNow, Frequency: core.Weekly,
	})
	require.NoError(t, err)
	assert.Empty(t, p.Frequency)
}

func TestSchedulePayment_NewestFirst(t *testing.T) {
	e := newTestEngine()
	b := core.DefaultBudget(testNow)

	b, first, err := e.SchedulePayment(b, ScheduleRequest{Amount: dec("1"), Date: testNow})
	require.NoError(t, err)
	b, second, err := e.SchedulePayment(b, ScheduleRequest{Amount: dec("2"), Date: testNow})
	require.NoError(t, err)

	require.Len(t, b.ScheduledPayments, 2)
	assert.Equal(t, second.ID, b.ScheduledPayments[0].ID)
	assert.Equal(t, first.ID, b.ScheduledPayments[1].ID)
}

func TestToggleAndCancelScheduled(t *testing.T) {
	e := newTestEngine()
	b, p, err := e.SchedulePayment(core.DefaultBudget(testNow), ScheduleRequest{Amount: dec("5"), Date: testNow})
	require.NoError(t, err)

	paused, got, err := e.ToggleScheduled(b, p.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.False(t, paused.ScheduledPayments[0].Active)
	assert.True(t, b.ScheduledPayments[0].Active)

	resumed, got, err := e.ToggleScheduled(paused, p.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.True(t, resumed.ScheduledPayments[0].Active)

	// cancel works for paused payments too
	canceled, removed, err := e.CancelScheduled(paused, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, removed.ID)
	assert.Empty(t, canceled.ScheduledPayments)

	_, _, err = e.ToggleScheduled(b, "missing", true)
	assert.ErrorIs(t, err, core.ErrScheduledPaymentNotFound)
	_, _, err = e.CancelScheduled(b, "missing")
	assert.ErrorIs(t, err, core.ErrScheduledPaymentNotFound)
}

func TestToggleScheduled_EndedStaysInactive(t *testing.T) {
	e := newTestEngine()
	for _, reason := range []core.EndReason{core.EndedCompleted, core.EndedFailed} {
		t.Run(string(reason), func(t *testing.T) {
			b, p, err := e.SchedulePayment(core.DefaultBudget(testNow), ScheduleRequest{Amount: dec("5"), Date: testNow})
			require.NoError(t, err)
			b.ScheduledPayments[0].Active = false
			b.ScheduledPayments[0].Ended = reason

			_, _, err = e.ToggleScheduled(b, p.ID, true)
			assert.ErrorIs(t, err, core.ErrScheduledPaymentEnded)
			assert.False(t, b.ScheduledPayments[0].Active)

			// pausing again is harmless
			_, got, err := e.ToggleScheduled(b, p.ID, false)
			require.NoError(t, err)
			assert.False(t, got.Active)
		})
	}
}
