package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salvadanaio/internal/core"
)

// DefaultKey is the key the budget snapshot is stored under.
const DefaultKey = "finance_wise_budget"

// Repository loads and saves the budget snapshot as JSON under one key.
type Repository struct {
	store    SnapshotStore
	key      string
	fallback func() core.Budget
}

// NewRepository returns a repository for key. fallback builds the budget
// used when nothing is stored or the stored snapshot cannot be decoded;
// nil means core.DefaultBudget.
func NewRepository(store SnapshotStore, key string, fallback func() core.Budget) *Repository {
	if key == "" {
		key = DefaultKey
	}
	if fallback == nil {
		fallback = func() core.Budget { return core.DefaultBudget(time.Now()) }
	}
	return &Repository{store: store, key: key, fallback: fallback}
}

// Load returns the stored budget. When nothing is stored the fallback is
// returned with a nil error. When the snapshot is corrupt the fallback is
// returned together with an error wrapping core.ErrPersistenceParse.
func (r *Repository) Load(ctx context.Context) (core.Budget, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, ErrNotFound) {
		return r.fallback(), nil
	}
	if err != nil {
		return core.Budget{}, err
	}

	b, err := Decode(raw)
	if err != nil {
		return r.fallback(), err
	}
	return b, nil
}

func (r *Repository) Save(ctx context.Context, b core.Budget) error {
	raw, err := Encode(b)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, r.key, raw)
}

// Key returns the storage key in use.
func (r *Repository) Key() string {
	return r.key
}

func Encode(b core.Budget) ([]byte, error) {
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode budget: %w", err)
	}
	return raw, nil
}

// Decode parses a snapshot. Missing collections decode as empty.
func Decode(raw []byte) (core.Budget, error) {
	var b core.Budget
	if err := json.Unmarshal(raw, &b); err != nil {
		return core.Budget{}, fmt.Errorf("%w: %v", core.ErrPersistenceParse, err)
	}
	if b.Categories == nil {
		return core.Budget{}, fmt.Errorf("%w: no categories", core.ErrPersistenceParse)
	}
	if b.Transactions == nil {
		b.Transactions = []core.Transaction{}
	}
	if b.ScheduledPayments == nil {
		b.ScheduledPayments = []core.ScheduledPayment{}
	}
	return b, nil
}
