package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
	"salvadanaio/internal/sheets"
)

func row(id string, date time.Time) sheets.Row {
	return sheets.Row{
		Date:          date,
		Type:          core.Payment,
		Amount:        decimal.RequireFromString("9.99"),
		Categories:    []string{"Daily Use"},
		Description:   "coffee",
		TransactionID: id,
	}
}

func TestMemoryStoreAppendAndList(t *testing.T) {
	s := New()
	ctx := context.Background()
	may := time.Date(2025, 5, 3, 10, 0, 0, 0, time.UTC)

	ref, err := s.Append(ctx, row("a", may))
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)
	_, err = s.Append(ctx, row("b", may.AddDate(0, 1, 0)))
	require.NoError(t, err)

	rows, err := s.ListEntries(ctx, 2025, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].TransactionID)
}

func TestMemoryStoreAppendIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2025, 5, 3, 10, 0, 0, 0, time.UTC)

	first, err := s.Append(ctx, row("a", now))
	require.NoError(t, err)
	second, err := s.Append(ctx, row("a", now))
	require.NoError(t, err, "redelivery")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreRejectsInvalidRow(t *testing.T) {
	s := New()
	_, err := s.Append(context.Background(), row("", time.Now()))
	assert.Error(t, err, "a row without transaction id is rejected")
	assert.Zero(t, s.Len())
}
