package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/core"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func category(id, name string, pct float64, amount string) core.Category {
	return core.Category{ID: id, Name: name, Percentage: pct, Amount: dec(amount)}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + string(rune('a'+n-1))
	}
}

func newTestEngine(opts ...Option) *Engine {
	return New(append([]Option{WithIDGenerator(sequentialIDs())}, opts...)...)
}

func byID(t *testing.T, categories []core.Category, id string) core.Category {
	t.Helper()
	for _, c := range categories {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("category %q not found", id)
	return core.Category{}
}

func TestDistributeIncome_Conservation(t *testing.T) {
	amounts := []string{"0.01", "1", "33.33", "100", "1234.56", "99999.99"}
	for _, a := range amounts {
		t.Run(a, func(t *testing.T) {
			before := core.DefaultCategories()
			alloc, err := DistributeIncome(before, dec(a))
			require.NoError(t, err)

			b := core.Budget{Categories: before}
			after := core.Budget{Categories: alloc.Categories}
			diff := after.CategoriesTotal().Sub(b.CategoriesTotal())
			assert.True(t, diff.Equal(dec(a)), "allocated %s, want %s", diff, a)
		})
	}
}

func TestDistributeIncome_DoesNotModifyInput(t *testing.T) {
	in := core.DefaultCategories()
	_, err := DistributeIncome(in, dec("500"))
	require.NoError(t, err)
	assert.True(t, in[0].Amount.Equal(dec("200")))
	assert.True(t, in[1].MaxAmount.Equal(dec("500")))
}

func TestDistributeIncome_RejectsNonPositive(t *testing.T) {
	for _, a := range []string{"0", "-5"} {
		_, err := DistributeIncome(core.DefaultCategories(), dec(a))
		assert.ErrorIs(t, err, core.ErrInvalidAmount)
	}
}

func TestDistributeIncome_Waterfall(t *testing.T) {
	categories := []core.Category{
		category("s", core.SavingsName, 10, "0"),
		category("b", "Bills", 50, "0"),
		category("d", core.DailyUseName, 20, "0"),
	}
	categories[0].Priority = intPtr(3)
	categories[1].Priority = intPtr(1)
	categories[1].MaxAmount = decPtr("30")
	categories[2].Priority = intPtr(2)

	alloc, err := DistributeIncome(categories, dec("100"))
	require.NoError(t, err)

	// Bills takes min(30, 50) = 30, Daily Use 20% of 70 = 14,
	// Savings 10% of 56 = 5.6 plus the 50.4 leftover.
	assert.True(t, byID(t, alloc.Categories, "b").Amount.Equal(dec("30")))
	assert.True(t, byID(t, alloc.Categories, "d").Amount.Equal(dec("14")))
	assert.True(t, byID(t, alloc.Categories, "s").Amount.Equal(dec("56")))
	assert.True(t, alloc.Leftover.Equal(dec("50.4")))
	assert.Equal(t, "s", alloc.SinkID)

	// input order is kept
	assert.Equal(t, "s", alloc.Categories[0].ID)
	assert.Equal(t, "b", alloc.Categories[1].ID)
}

func TestDistributeIncome_CapRespect(t *testing.T) {
	categories := core.DefaultCategories()
	for i := 0; i < 20; i++ {
		alloc, err := DistributeIncome(categories, dec("737.77"))
		require.NoError(t, err)
		categories = alloc.Categories
		for _, c := range categories {
			if c.IsCapped() && c.Name != core.SavingsName {
				assert.False(t, c.Amount.GreaterThan(*c.MaxAmount), "%s exceeds cap: %s > %s", c.Name, c.Amount, c.MaxAmount)
			}
		}
	}
}

func TestDistributeIncome_DailyUseIgnoresCap(t *testing.T) {
	categories := []core.Category{
		category("d", core.DailyUseName, 50, "100"),
		category("s", core.SavingsName, 0, "0"),
	}
	categories[0].MaxAmount = decPtr("100")

	alloc, err := DistributeIncome(categories, dec("100"))
	require.NoError(t, err)
	assert.True(t, byID(t, alloc.Categories, "d").Amount.Equal(dec("150")))
}

func TestDistributeIncome_OverflowRoutesToSavings(t *testing.T) {
	categories := []core.Category{
		category("b", "Bills", 60, "500"),
		category("g", "Groceries", 40, "300"),
		category("s", core.SavingsName, 0, "10"),
	}
	categories[0].MaxAmount = decPtr("500")
	categories[1].MaxAmount = decPtr("300")

	alloc, err := DistributeIncome(categories, dec("250"))
	require.NoError(t, err)
	assert.True(t, byID(t, alloc.Categories, "b").Amount.Equal(dec("500")))
	assert.True(t, byID(t, alloc.Categories, "g").Amount.Equal(dec("300")))
	assert.True(t, byID(t, alloc.Categories, "s").Amount.Equal(dec("260")))
	assert.True(t, alloc.Leftover.Equal(dec("250")))
}

func TestDistributeIncome_NoSavings(t *testing.T) {
	tests := []struct {
		name     string
		setup    func() []core.Category
		wantSink string
		wantErr  error
	}{
		{
			name: "last uncapped category in fill order",
			setup: func() []core.Category {
				c := []core.Category{
					category("a", "Rent", 50, "0"),
					category("b", "Fun", 10, "0"),
					category("c", "Food", 10, "0"),
				}
				c[0].Priority = intPtr(1)
				c[1].Priority = intPtr(3)
				c[2].Priority = intPtr(2)
				c[1].MaxAmount = decPtr("1")
				return c
			},
			wantSink: "c",
		},
		{
			name: "every category capped and full",
			setup: func() []core.Category {
				c := []core.Category{category("a", "Rent", 50, "10")}
				c[0].MaxAmount = decPtr("10")
				return c
			},
			wantErr: core.ErrStrandedFunds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc, err := DistributeIncome(tt.setup(), dec("100"))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSink, alloc.SinkID)
			total := core.Budget{Categories: alloc.Categories}.CategoriesTotal()
			assert.True(t, total.Equal(dec("100")))
		})
	}
}

func TestDistributeIncome_MissingPriorityFillsLast(t *testing.T) {
	categories := []core.Category{
		category("late", "Hobbies", 50, "0"),
		category("early", "Rent", 50, "0"),
		category("s", core.SavingsName, 0, "0"),
	}
	categories[1].Priority = intPtr(1)

	alloc, err := DistributeIncome(categories, dec("100"))
	require.NoError(t, err)
	assert.True(t, byID(t, alloc.Categories, "early").Amount.Equal(dec("50")))
	assert.True(t, byID(t, alloc.Categories, "late").Amount.Equal(dec("25")))
	assert.True(t, byID(t, alloc.Categories, "s").Amount.Equal(dec("25")))
}

func TestAddIncome(t *testing.T) {
	e := newTestEngine()
	b := core.DefaultBudget(testNow)

	res, err := e.AddIncome(b, dec("100"), "Salary", testNow)
	require.NoError(t, err)

	assert.True(t, res.Budget.TotalBalance.Equal(dec("1100")))
	assert.True(t, res.Budget.CategoriesTotal().Sub(b.CategoriesTotal()).Equal(dec("100")))
	require.Len(t, res.Budget.Transactions, 2)
	assert.Equal(t, core.Income, res.Budget.Transactions[0].Type)
	assert.Equal(t, "id-a", res.Transaction.ID)
	assert.Empty(t, res.Transaction.Category)

	// input untouched
	assert.True(t, b.TotalBalance.Equal(dec("1000")))
	assert.Len(t, b.Transactions, 1)
}
