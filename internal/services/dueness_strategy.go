// Package services provides the budget controller and scheduler orchestration.
//
// This file implements the Strategy Pattern for advancing recurring payments.
// Each frequency has its own strategy that computes the next due date after
// a successful fire.
package services

import (
	"fmt"
	"sync"
	"time"

	"salvadanaio/internal/core"
)

// Advancer is the strategy interface for moving a recurring payment to its
// next due date.
type Advancer interface {
	Next(from time.Time) time.Time
}

// DailyAdvancer moves the due date one calendar day forward.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(from time.Time) time.Time {
	return from.AddDate(0, 0, 1)
}

// WeeklyAdvancer moves the due date exactly seven days forward.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(from time.Time) time.Time {
	return from.AddDate(0, 0, 7)
}

// MonthlyAdvancer moves the due date to the same day of the next month,
// clamped to the last day when the next month is shorter.
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(from time.Time) time.Time {
	y, m, d := from.Date()
	lastDay := time.Date(y, m+2, 0, 0, 0, 0, 0, from.Location()).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(y, m+1, d, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

var (
	advancersMu sync.RWMutex
	advancers   = map[core.Frequency]Advancer{
		core.Daily:   DailyAdvancer{},
		core.Weekly:  WeeklyAdvancer{},
		core.Monthly: MonthlyAdvancer{},
	}
)

// GetAdvancer returns the strategy for a frequency.
func GetAdvancer(frequency core.Frequency) (Advancer, error) {
	advancersMu.RLock()
	a, ok := advancers[frequency]
	advancersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, frequency)
	}
	return a, nil
}

// RegisterAdvancer installs a strategy for a frequency, replacing any
// existing one. A nil Advancer removes the frequency. It is safe to call
// while schedulers are running.
func RegisterAdvancer(frequency core.Frequency, a Advancer) {
	advancersMu.Lock()
	defer advancersMu.Unlock()
	if a == nil {
		delete(advancers, frequency)
		return
	}
	advancers[frequency] = a
}
