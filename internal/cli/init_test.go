package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/config"
	"salvadanaio/internal/log"
	"salvadanaio/internal/seed"
	"salvadanaio/internal/sheets/memory"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:              "8081",
		StorageBackend:    config.BackendMemory,
		SnapshotKey:       "test_budget",
		SeedFile:          filepath.Join(t.TempDir(), "missing.toml"),
		SchedulerInterval: time.Minute,
		LowFundsLookahead: 3 * time.Minute,
		LogLevel:          "info",
	}
}

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = SetupLogger("nonsense")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestNewApp_DefaultSeed(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), log.Discard())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Service.Start(context.Background()))
	defer app.Service.Stop(context.Background())

	b, err := app.Service.Snapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, b.TotalBalance.Equal(decimal.NewFromInt(1000)))
	assert.Len(t, b.Categories, 6)
	assert.Nil(t, app.Backend.Publisher)
}

func TestNewApp_CustomSeedAndPersistence(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = config.BackendSQLite
	cfg.SQLiteDBPath = filepath.Join(t.TempDir(), "budget.db")
	cfg.SeedFile = filepath.Join(t.TempDir(), "seed.toml")

	f := seed.File{
		InitialDeposit: "500",
		Description:    "Opening balance",
		Categories: []seed.Category{
			{ID: "s", Name: "Savings", Percentage: 50, Amount: "250", Priority: 1},
			{ID: "d", Name: "Daily Use", Percentage: 50, Amount: "250", Priority: 2},
		},
	}
	require.NoError(t, seed.Save(cfg.SeedFile, f))

	app, err := NewApp(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	require.NoError(t, app.Service.Start(context.Background()))

	_, err = app.Service.AddIncome(context.Background(), decimal.NewFromInt(100), "Salary")
	require.NoError(t, err)
	require.NoError(t, app.Service.Stop(context.Background()))
	require.NoError(t, app.Close())

	reopened, err := NewApp(context.Background(), cfg, log.Discard())
	require.NoError(t, err)
	defer reopened.Close()

	b, err := reopened.Repository.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, b.TotalBalance.Equal(decimal.NewFromInt(600)), "total = %s", b.TotalBalance)
	assert.Len(t, b.Categories, 2)
}

func TestNewLedger_MemoryWithoutSpreadsheet(t *testing.T) {
	ledger, err := NewLedger(context.Background(), testConfig(t), log.Discard())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, ledger)
}

func TestIgnoreCanceled(t *testing.T) {
	assert.NoError(t, IgnoreCanceled(nil))
	assert.NoError(t, IgnoreCanceled(fmt.Errorf("consume: %w", context.Canceled)))
	assert.Error(t, IgnoreCanceled(errors.New("boom")))
}
