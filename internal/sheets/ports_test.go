package sheets

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
)

func TestRowValuesAndParse(t *testing.T) {
	tx := core.Transaction{
		ID:          "17",
		Amount:      decimal.RequireFromString("1234.5"),
		Type:        core.Payment,
		Category:    "2,1",
		Date:        time.Date(2025, 5, 10, 12, 30, 0, 0, time.UTC),
		Description: "Rent",
	}

	r := NewRow(tx, []string{"Bills", "Daily Use"})
	values := r.Values()
	assert.Equal(t, []any{"2025-05-10 12:30", "payment", "1234.50", "Bills, Daily Use", "Rent", "17"}, values)

	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = v.(string)
	}
	parsed, err := ParseRow(cells)
	require.NoError(t, err)
	assert.True(t, parsed.Date.Equal(r.Date))
	assert.True(t, parsed.Amount.Equal(r.Amount))
	assert.Equal(t, r.Categories, parsed.Categories)
	assert.Equal(t, r.TransactionID, parsed.TransactionID)
}

func TestParseRow_ThousandsSeparatorAndShortRow(t *testing.T) {
	parsed, err := ParseRow([]string{"2025-01-02 08:00", "income", "1,500.00"})
	require.NoError(t, err)
	assert.True(t, parsed.Amount.Equal(decimal.RequireFromString("1500")))
	assert.Empty(t, parsed.Categories)
	assert.Empty(t, parsed.TransactionID)
}

func TestParseRow_Errors(t *testing.T) {
	_, err := ParseRow([]string{"yesterday", "income", "1"})
	assert.Error(t, err)
	_, err = ParseRow([]string{"2025-01-02 08:00", "income", "lots"})
	assert.Error(t, err)
}

func TestRowValidate(t *testing.T) {
	ok := Row{TransactionID: "1", Amount: decimal.NewFromInt(1), Date: time.Now()}
	assert.NoError(t, ok.Validate())

	noAmount := ok
	noAmount.Amount = decimal.Zero
	assert.ErrorIs(t, noAmount.Validate(), core.ErrInvalidAmount)

	noDate := ok
	noDate.Date = time.Time{}
	assert.ErrorIs(t, noDate.Validate(), core.ErrInvalidDate)
}
