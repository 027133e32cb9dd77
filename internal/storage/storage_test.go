package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
)

func sampleBudget() core.Budget {
	now := time.Date(2025, 6, 1, 14, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	b := core.DefaultBudget(now)
	b.Transactions = append([]core.Transaction{{
		ID:          "tx-2",
		Amount:      decimal.RequireFromString("42.17"),
		Type:        core.Payment,
		Category:    "6,1",
		Date:        now,
		Description: "Dinner",
	}}, b.Transactions...)
	b.ScheduledPayments = []core.ScheduledPayment{{
		ID:                 "sp-1",
		Amount:             decimal.RequireFromString("19.99"),
		Description:        "Streaming",
		Category:           "3",
		FallbackCategories: []string{"6", "1"},
		NextDate:           now.Add(48 * time.Hour),
		Recurring:          true,
		Frequency:          core.Monthly,
		Time:               "14:30",
		Active:             true,
	}}
	return b
}

func assertBudgetsEqual(t *testing.T, want, got core.Budget) {
	t.Helper()
	assert.True(t, want.TotalBalance.Equal(got.TotalBalance))
	require.Len(t, got.Categories, len(want.Categories))
	for i := range want.Categories {
		w, g := want.Categories[i], got.Categories[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Percentage, g.Percentage)
		assert.True(t, w.Amount.Equal(g.Amount), "%s amount %s != %s", w.Name, w.Amount, g.Amount)
		assert.Equal(t, w.EffectivePriority(), g.EffectivePriority())
		if w.MaxAmount == nil {
			assert.Nil(t, g.MaxAmount)
		} else {
			require.NotNil(t, g.MaxAmount)
			assert.True(t, w.MaxAmount.Equal(*g.MaxAmount))
		}
	}
	require.Len(t, got.Transactions, len(want.Transactions))
	for i := range want.Transactions {
		w, g := want.Transactions[i], got.Transactions[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Type, g.Type)
		assert.Equal(t, w.Category, g.Category)
		assert.True(t, w.Amount.Equal(g.Amount))
		assert.True(t, w.Date.Equal(g.Date), "date %v != %v", w.Date, g.Date)
	}
	require.Len(t, got.ScheduledPayments, len(want.ScheduledPayments))
	for i := range want.ScheduledPayments {
		w, g := want.ScheduledPayments[i], got.ScheduledPayments[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.FallbackCategories, g.FallbackCategories)
		assert.Equal(t, w.Frequency, g.Frequency)
		assert.Equal(t, w.Recurring, g.Recurring)
		assert.Equal(t, w.Active, g.Active)
		assert.Equal(t, w.Time, g.Time)
		assert.True(t, w.Amount.Equal(g.Amount))
		assert.True(t, w.NextDate.Equal(g.NextDate))
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	want := sampleBudget()
	raw, err := Encode(want)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assertBudgetsEqual(t, want, got)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"bad date", `{"totalBalance":"1","categories":[],"transactions":[{"date":"yesterday"}]}`},
		{"bad amount", `{"totalBalance":"lots","categories":[]}`},
		{"no categories", `{"totalBalance":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			assert.ErrorIs(t, err, core.ErrPersistenceParse)
		})
	}
}

func TestDecode_FillsMissingCollections(t *testing.T) {
	b, err := Decode([]byte(`{"totalBalance":10,"categories":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, b.Transactions)
	assert.NotNil(t, b.ScheduledPayments)
	assert.True(t, b.TotalBalance.Equal(decimal.NewFromInt(10)))
}

func TestRepository_Fallbacks(t *testing.T) {
	ctx := context.Background()
	fallback := func() core.Budget {
		b := core.DefaultBudget(time.Time{})
		b.TotalBalance = decimal.NewFromInt(7)
		return b
	}

	store := NewMemoryStore()
	repo := NewRepository(store, "k", fallback)

	b, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, b.TotalBalance.Equal(decimal.NewFromInt(7)))

	require.NoError(t, store.Put(ctx, "k", []byte("corrupt")))
	b, err = repo.Load(ctx)
	assert.ErrorIs(t, err, core.ErrPersistenceParse)
	assert.True(t, b.TotalBalance.Equal(decimal.NewFromInt(7)))
}

func TestRepository_DefaultKey(t *testing.T) {
	repo := NewRepository(NewMemoryStore(), "", nil)
	assert.Equal(t, DefaultKey, repo.Key())

	b, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.Categories, 6)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	v := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", v))
	v[0] = 'z'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "nested", "salvadanaio.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))

	_, err = s.Get(ctx, DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, DefaultKey, []byte("one")))
	require.NoError(t, s.Put(ctx, DefaultKey, []byte("two")))
	got, err := s.Get(ctx, DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	v, dirty, err := SchemaVersion(dbPath)
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)
}

func TestSQLiteStore_RepositoryRoundTripAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "budget.db")
	want := sampleBudget()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, NewRepository(s, DefaultKey, nil).Save(ctx, want))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	got, err := NewRepository(s, DefaultKey, nil).Load(ctx)
	require.NoError(t, err)
	assertBudgetsEqual(t, want, got)
}

func TestSQLiteStore_LeaseExcludesSecondWriter(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "budget.db")

	daemon, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer daemon.Close()
	cli, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer cli.Close()

	require.NoError(t, daemon.Acquire(ctx, DefaultKey, "daemon", time.Minute))
	require.NoError(t, daemon.Acquire(ctx, DefaultKey, "daemon", time.Minute), "the holder renews")

	err = cli.Acquire(ctx, DefaultKey, "cli", time.Minute)
	require.ErrorIs(t, err, core.ErrLeaseHeld)
	assert.Contains(t, err.Error(), "daemon")

	require.NoError(t, cli.Release(ctx, DefaultKey, "cli"), "releasing a lease you do not hold is a no-op")
	assert.ErrorIs(t, cli.Acquire(ctx, DefaultKey, "cli", time.Minute), core.ErrLeaseHeld)

	require.NoError(t, daemon.Release(ctx, DefaultKey, "daemon"))
	require.NoError(t, cli.Acquire(ctx, DefaultKey, "cli", time.Minute))
}

func TestSQLiteStore_ExpiredLeaseCanBeTaken(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "budget.db")
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	a, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer b.Close()
	a.now = func() time.Time { return start }
	b.now = func() time.Time { return start.Add(29 * time.Second) }

	require.NoError(t, a.Acquire(ctx, "budget", "a", 30*time.Second))
	assert.ErrorIs(t, b.Acquire(ctx, "budget", "b", 30*time.Second), core.ErrLeaseHeld)

	b.now = func() time.Time { return start.Add(30 * time.Second) }
	require.NoError(t, b.Acquire(ctx, "budget", "b", 30*time.Second))
	assert.ErrorIs(t, a.Acquire(ctx, "budget", "a", 30*time.Second), core.ErrLeaseHeld)
}

func TestMemoryStore_Lease(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	now := start
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Acquire(ctx, "budget", "a", time.Minute))
	assert.ErrorIs(t, s.Acquire(ctx, "budget", "b", time.Minute), core.ErrLeaseHeld)

	now = start.Add(time.Minute)
	require.NoError(t, s.Acquire(ctx, "budget", "b", time.Minute))

	require.NoError(t, s.Release(ctx, "budget", "a"))
	assert.ErrorIs(t, s.Acquire(ctx, "budget", "a", time.Minute), core.ErrLeaseHeld)
	require.NoError(t, s.Release(ctx, "budget", "b"))
	require.NoError(t, s.Acquire(ctx, "budget", "a", time.Minute))
}
