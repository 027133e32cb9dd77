// Package cli provides common initialization shared by cmd/salvadanaio,
// cmd/salvadanaio-cli and cmd/ledger-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"salvadanaio/internal/backend"
	"salvadanaio/internal/config"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/log"
	"salvadanaio/internal/notify"
	"salvadanaio/internal/seed"
	"salvadanaio/internal/services"
	"salvadanaio/internal/sheets"
	"salvadanaio/internal/sheets/google"
	"salvadanaio/internal/sheets/memory"
	"salvadanaio/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// installs it as the default logger. Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Handler = nil
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App is the wired budget service with its storage and notifications.
type App struct {
	Config     *config.Config
	Logger     *log.Logger
	Backend    *backend.BackendResult
	Repository *storage.Repository
	Engine     *engine.Engine
	Hub        *notify.Hub
	Service    *services.BudgetService
}

// NewApp builds the budget service from configuration. The service is not
// started; callers Start or Run it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	seedFile, err := seed.Load(cfg.SeedFile)
	if err != nil {
		_ = result.Cleanup()
		return nil, err
	}

	repo := storage.NewRepository(result.Store, cfg.SnapshotKey, seed.Fallback(seedFile))
	e := engine.New(engine.WithStrictPercentages(cfg.StrictPercentages))
	hub := notify.NewHub()
	logger.DebugContext(ctx, "Budget engine configured",
		"strict_percentages", e.StrictPercentages(),
		"snapshot_key", repo.Key())

	opts := []services.ServiceOption{
		services.WithLogger(logger),
		services.WithNotifier(notify.Multi{hub, notify.NewLogNotifier(logger)}),
	}
	if result.Lease != nil {
		opts = append(opts, services.WithLease(result.Lease, repo.Key(), services.DefaultLeaseTTL))
	}
	if result.Publisher != nil {
		opts = append(opts, services.WithLedgerPublisher(result.Publisher))
	}
	svc := services.NewBudgetService(repo, e,
		services.NewScheduler(e, cfg.LowFundsLookahead, logger.WithComponent(log.ComponentScheduler)),
		opts...)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Backend:    result,
		Repository: repo,
		Engine:     e,
		Hub:        hub,
		Service:    svc,
	}, nil
}

// Close releases the storage and broker connections.
func (a *App) Close() error {
	if a.Backend == nil || a.Backend.Cleanup == nil {
		return nil
	}
	return a.Backend.Cleanup()
}

// Ledger reads and writes the exported ledger.
type Ledger interface {
	sheets.LedgerWriter
	sheets.LedgerReader
}

// NewLedger returns the Google Sheets ledger when a spreadsheet is
// configured, otherwise an in-memory ledger.
func NewLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (Ledger, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, using in-memory ledger")
		return memory.New(), nil
	}
	client, err := google.NewFromEnv(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// GracefulShutdown returns a context that is canceled on SIGINT or SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// IgnoreCanceled drops the error a component returns when its context is
// canceled during shutdown.
func IgnoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
