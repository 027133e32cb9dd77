package worker

import (
	"context"
	"fmt"
	"time"

	"salvadanaio/internal/amqp"
	"salvadanaio/internal/core"
	"salvadanaio/internal/log"
	"salvadanaio/internal/sheets"
)

// BudgetLoader reads the persisted budget, used for backfills.
type BudgetLoader interface {
	Load(ctx context.Context) (core.Budget, error)
}

// LedgerWorker mirrors committed transactions into an external ledger.
type LedgerWorker struct {
	writer sheets.LedgerWriter
	logger *log.Logger
}

func NewLedgerWorker(writer sheets.LedgerWriter, logger *log.Logger) *LedgerWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerWorker{
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEntry processes a single ledger message from AMQP.
func (w *LedgerWorker) HandleLedgerEntry(ctx context.Context, msg *amqp.LedgerEntryMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger entry",
		log.FieldTransactionID, msg.Transaction.ID,
		"type", msg.Transaction.Type)

	ref, err := w.writer.Append(ctx, sheets.NewRow(msg.Transaction, msg.CategoryNames))
	if err != nil {
		return fmt.Errorf("append ledger row %s: %w", msg.Transaction.ID, err)
	}

	w.logger.InfoContext(ctx, "Ledger entry written",
		log.FieldTransactionID, msg.Transaction.ID,
		"sheets_ref", ref,
		log.FieldAmount, msg.Transaction.Amount.StringFixed(2))
	return nil
}

// BackfillReport summarizes a Backfill run.
type BackfillReport struct {
	Total   int
	Written int
	Errors  int
}

// Backfill appends every transaction dated at or after since. It recovers
// entries whose messages were lost while the broker or worker was down;
// rows already in the ledger are skipped by the writer.
func (w *LedgerWorker) Backfill(ctx context.Context, loader BudgetLoader, since time.Time) (BackfillReport, error) {
	b, err := loader.Load(ctx)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("load budget for backfill: %w", err)
	}

	var report BackfillReport
	// Transactions are stored newest first; the ledger reads oldest first.
	for i := len(b.Transactions) - 1; i >= 0; i-- {
		tx := b.Transactions[i]
		if tx.Date.Before(since) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Total++
		if _, err := w.writer.Append(ctx, sheets.NewRow(tx, b.CategoryNames(tx))); err != nil {
			w.logger.ErrorContext(ctx, "Failed to backfill ledger entry",
				log.FieldTransactionID, tx.ID,
				log.FieldError, err)
			report.Errors++
			continue
		}
		report.Written++
	}

	w.logger.InfoContext(ctx, "Ledger backfill completed",
		"total", report.Total,
		"written", report.Written,
		"errors", report.Errors)
	return report, nil
}
