package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"salvadanaio/internal/amqp"
	"salvadanaio/internal/backend"
	"salvadanaio/internal/cli"
	"salvadanaio/internal/config"
	"salvadanaio/internal/log"
	"salvadanaio/internal/seed"
	"salvadanaio/internal/storage"
	"salvadanaio/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.LedgerEnabled() {
		logger.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	ledger, err := cli.NewLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", log.FieldError, err)
		os.Exit(1)
	}
	ledgerWorker := worker.NewLedgerWorker(ledger, logger)

	// Re-export recent transactions whose messages may have been lost.
	if cfg.LedgerBackfillWindow > 0 {
		if err := backfill(ctx, cfg, ledgerWorker, logger); err != nil {
			logger.Error("Ledger backfill failed", log.FieldError, err)
			// keep consuming; the next start retries
		}
	} else {
		logger.Info("Ledger backfill disabled")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	logger.Info("Consuming ledger entries", "queue", cfg.AMQPQueue, "exchange", cfg.AMQPExchange)
	if err := cli.IgnoreCanceled(amqpClient.ConsumeLedgerEntries(ctx, ledgerWorker.HandleLedgerEntry)); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker shutdown complete")
}

// backfill appends the transactions committed within the backfill window.
// The store is opened without a publisher; the worker only reads it.
func backfill(ctx context.Context, cfg *config.Config, w *worker.LedgerWorker, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	backendCfg.AMQPURL = ""

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("open budget store: %w", err)
	}
	defer result.Cleanup()

	seedFile, err := seed.Load(cfg.SeedFile)
	if err != nil {
		return err
	}
	repo := storage.NewRepository(result.Store, cfg.SnapshotKey, seed.Fallback(seedFile))

	since := time.Now().Add(-cfg.LedgerBackfillWindow)
	logger.Info("Backfilling ledger", "since", since.Format(time.RFC3339))
	_, err = w.Backfill(ctx, repo, since)
	return err
}
