// Package engine implements the budget operations as pure functions of a
// core.Budget snapshot: every operation returns an updated copy and leaves
// its input untouched, so a failed operation never needs a rollback.
package engine

import (
	"github.com/google/uuid"
)

// Engine holds the policies shared by all operations.
type Engine struct {
	strictPercentages bool
	newID             func() string
}

type Option func(*Engine)

// WithStrictPercentages rejects category changes that would push the sum of
// all percentages above 100.
func WithStrictPercentages(strict bool) Option {
	return func(e *Engine) { e.strictPercentages = strict }
}

// WithIDGenerator overrides the generator used for new entity ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{newID: uuid.NewString}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StrictPercentages reports whether the 100% ceiling is enforced.
func (e *Engine) StrictPercentages() bool {
	return e.strictPercentages
}
