package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/log"
)

var (
	ErrNotRunning     = errors.New("budget service is not running")
	ErrAlreadyRunning = errors.New("budget service is already running")
)

// Store loads and saves the whole budget snapshot.
type Store interface {
	Load(ctx context.Context) (core.Budget, error)
	Save(ctx context.Context, b core.Budget) error
}

// Notifier delivers outcomes to whoever renders them. It must not block.
type Notifier interface {
	Notify(ctx context.Context, o core.Outcome)
}

// LedgerPublisher forwards committed transactions to downstream consumers.
type LedgerPublisher interface {
	PublishLedgerEntry(ctx context.Context, tx core.Transaction, categoryNames []string) error
}

// Leaser grants one writer at a time exclusive use of a named budget.
type Leaser interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) error
	Release(ctx context.Context, name, owner string) error
}

const (
	// DefaultLeaseTTL is how long a writer lease lasts without renewal.
	DefaultLeaseTTL = 30 * time.Second
	outboxSize      = 256
)

// Result is what every intent reports back, whether it was committed or not.
type Result struct {
	Outcome core.Outcome `json:"outcome"`
	Budget  core.Budget  `json:"budget"`
}

type ledgerEntry struct {
	tx    core.Transaction
	names []string
}

type task struct {
	ctx  context.Context
	fn   func(ctx context.Context)
	done chan struct{}
}

// BudgetService owns the current budget. Every intent, read and scheduler
// tick runs as a task on a single goroutine, so no two operations ever
// compute against the same snapshot.
type BudgetService struct {
	engine    *engine.Engine
	scheduler *Scheduler
	store     Store
	notifier  Notifier
	publisher LedgerPublisher
	now       func() time.Time
	logger    *log.Logger

	leaser     Leaser
	leaseName  string
	leaseOwner string
	leaseTTL   time.Duration

	tasks  chan task
	state  core.Budget
	outbox chan ledgerEntry

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	pubDone   chan struct{}
	pubCancel context.CancelFunc
}

type ServiceOption func(*BudgetService)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *BudgetService) { s.notifier = n }
}

func WithLedgerPublisher(p LedgerPublisher) ServiceOption {
	return func(s *BudgetService) { s.publisher = p }
}

// WithLease makes Start claim the lease called name before loading, so a
// second writer on the same store is refused. A zero ttl means
// DefaultLeaseTTL.
func WithLease(l Leaser, name string, ttl time.Duration) ServiceOption {
	return func(s *BudgetService) {
		s.leaser = l
		s.leaseName = name
		s.leaseTTL = ttl
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *BudgetService) { s.now = now }
}

func WithLogger(l *log.Logger) ServiceOption {
	return func(s *BudgetService) { s.logger = l }
}

func NewBudgetService(store Store, e *engine.Engine, scheduler *Scheduler, opts ...ServiceOption) *BudgetService {
	s := &BudgetService{
		engine:    e,
		scheduler: scheduler,
		store:     store,
		now:       time.Now,
		logger:    log.Discard(),
		tasks:     make(chan task),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentEngine)
	if s.leaseTTL <= 0 {
		s.leaseTTL = DefaultLeaseTTL
	}
	host, _ := os.Hostname()
	s.leaseOwner = fmt.Sprintf("%s/%d/%s", host, os.Getpid(), uuid.NewString())
	if s.scheduler == nil {
		s.scheduler = NewScheduler(e, DefaultLookahead, s.logger)
	}
	return s
}

// Start takes the writer lease, loads the stored budget and begins serving
// tasks.
func (s *BudgetService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.mu.Unlock()

	if s.leaser != nil {
		if err := s.leaser.Acquire(ctx, s.leaseName, s.leaseOwner, s.leaseTTL); err != nil {
			return fmt.Errorf("acquire writer lease: %w", err)
		}
	}

	b, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, core.ErrPersistenceParse):
		s.logger.WarnContext(ctx, "Stored budget unreadable, using default budget",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		s.notify(ctx, core.Failure("Saved data reset", "Your saved budget could not be read; the default budget was loaded"))
	case err != nil:
		s.releaseLease(ctx)
		return fmt.Errorf("load budget: %w", err)
	}

	s.mu.Lock()
	s.state = b
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.outbox, s.pubDone, s.pubCancel = nil, nil, nil
	if s.publisher != nil {
		var pubCtx context.Context
		pubCtx, s.pubCancel = context.WithCancel(context.Background())
		s.outbox = make(chan ledgerEntry, outboxSize)
		s.pubDone = make(chan struct{})
		go s.publishLoop(pubCtx, s.outbox, s.pubDone)
	}
	stopCh := s.stopCh
	s.mu.Unlock()

	go s.loop()
	if s.leaser != nil {
		go s.renewLease(stopCh)
	}

	s.logger.InfoContext(ctx, "Budget service started",
		log.FieldTotalBalance, b.TotalBalance.StringFixed(2),
		"categories", len(b.Categories),
		"scheduled_payments", len(b.ScheduledPayments))
	return nil
}

// Stop finishes the task in flight, drains the ledger outbox and gives the
// writer lease back.
func (s *BudgetService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	pubDone, pubCancel := s.pubDone, s.pubCancel
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-ctx.Done():
		if pubCancel != nil {
			pubCancel()
		}
		s.logger.WarnContext(ctx, "Budget service stop timed out")
		return ctx.Err()
	}

	if pubDone != nil {
		select {
		case <-pubDone:
			pubCancel()
		case <-ctx.Done():
			pubCancel()
			s.logger.WarnContext(ctx, "Ledger outbox not drained before stop timeout",
				log.FieldOperation, log.OpPublish)
			s.releaseLease(ctx)
			return ctx.Err()
		}
	}

	s.releaseLease(ctx)
	s.logger.InfoContext(ctx, "Budget service stopped gracefully")
	return nil
}

// Run starts the service and blocks until ctx is canceled.
func (s *BudgetService) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// IsRunning returns whether the service is accepting tasks
func (s *BudgetService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *BudgetService) loop() {
	s.mu.Lock()
	stopCh, doneCh, outbox := s.stopCh, s.doneCh, s.outbox
	s.mu.Unlock()
	defer close(doneCh)
	// the loop is the only sender
	if outbox != nil {
		defer close(outbox)
	}

	for {
		select {
		case <-stopCh:
			return
		case t := <-s.tasks:
			t.fn(t.ctx)
			close(t.done)
		}
	}
}

// publishLoop forwards committed transactions until the outbox is closed.
func (s *BudgetService) publishLoop(ctx context.Context, outbox <-chan ledgerEntry, done chan<- struct{}) {
	defer close(done)
	for e := range outbox {
		if err := s.publisher.PublishLedgerEntry(ctx, e.tx, e.names); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish ledger entry",
				log.FieldOperation, log.OpPublish,
				log.FieldTransactionID, e.tx.ID,
				log.FieldError, err)
		}
	}
}

// renewLease keeps the writer lease alive. Losing it to another writer
// stops the service.
func (s *BudgetService) renewLease(stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.leaseTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.leaseTTL/3)
		err := s.leaser.Acquire(ctx, s.leaseName, s.leaseOwner, s.leaseTTL)
		switch {
		case errors.Is(err, core.ErrLeaseHeld):
			s.logger.ErrorContext(ctx, "Writer lease lost, stopping budget service",
				log.FieldError, err)
			s.notify(ctx, core.Failure("Budget stopped", "Another writer took over this budget"))
			cancel()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = s.Stop(stopCtx)
			stopCancel()
			return
		case err != nil:
			s.logger.WarnContext(ctx, "Failed to renew writer lease",
				log.FieldError, err)
		}
		cancel()
	}
}

func (s *BudgetService) releaseLease(ctx context.Context) {
	if s.leaser == nil {
		return
	}
	if err := s.leaser.Release(context.WithoutCancel(ctx), s.leaseName, s.leaseOwner); err != nil {
		s.logger.WarnContext(ctx, "Failed to release writer lease",
			log.FieldError, err)
	}
}

// submit runs fn on the owner goroutine and waits for it.
func (s *BudgetService) submit(ctx context.Context, fn func(ctx context.Context)) error {
	s.mu.Lock()
	running, doneCh := s.running, s.doneCh
	s.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	t := task{ctx: ctx, fn: fn, done: make(chan struct{})}
	select {
	case s.tasks <- t:
	case <-doneCh:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutation is the body of an intent. It computes against the current state
// and returns the candidate budget, the outcome and any new transactions.
type mutation func(b core.Budget, now time.Time) (core.Budget, core.Outcome, []core.Transaction, error)

func (s *BudgetService) apply(ctx context.Context, op string, m mutation) (Result, error) {
	var (
		res   Result
		opErr error
	)
	err := s.submit(ctx, func(ctx context.Context) {
		next, outcome, txs, err := m(s.state, s.now())
		if err != nil {
			opErr = err
			res = Result{Outcome: core.OutcomeFromError(err), Budget: s.state.Clone()}
			s.logger.WarnContext(ctx, "Operation rejected",
				log.FieldOperation, op,
				log.FieldError, err)
			s.notify(ctx, res.Outcome)
			return
		}
		s.commit(ctx, op, next, txs)
		res = Result{Outcome: outcome, Budget: next.Clone()}
		s.notify(ctx, outcome)
	})
	if err != nil {
		return Result{Outcome: core.OutcomeFromError(err)}, err
	}
	return res, opErr
}

// commit replaces the state and performs the side effects. Failures of the
// side effects are reported but never undo the commit. Ledger entries are
// handed to the outbox; publishing happens off the owner goroutine.
func (s *BudgetService) commit(ctx context.Context, op string, next core.Budget, txs []core.Transaction) {
	s.state = next

	fields := []any{
		log.FieldOperation, op,
		log.FieldTotalBalance, next.TotalBalance.StringFixed(2),
	}
	for _, tx := range txs {
		fields = append(fields, log.FieldTransactionID, tx.ID, log.FieldAmount, tx.Amount.StringFixed(2))
	}
	s.logger.InfoContext(ctx, "Budget updated", fields...)

	if err := s.store.Save(ctx, next); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist budget",
			log.FieldOperation, log.OpSave,
			log.FieldError, err)
		s.notify(ctx, core.Failure("Save failed", "Your change is applied but could not be saved: %v", err))
	}

	if s.outbox == nil {
		return
	}
	for _, tx := range txs {
		select {
		case s.outbox <- ledgerEntry{tx: tx, names: next.CategoryNames(tx)}:
		default:
			s.logger.ErrorContext(ctx, "Ledger outbox full, entry left for backfill",
				log.FieldOperation, log.OpPublish,
				log.FieldTransactionID, tx.ID)
		}
	}
}

func (s *BudgetService) notify(ctx context.Context, o core.Outcome) {
	if s.notifier != nil {
		s.notifier.Notify(ctx, o)
	}
}

func (s *BudgetService) AddIncome(ctx context.Context, amount decimal.Decimal, description string) (Result, error) {
	return s.apply(ctx, log.OpIncome, func(b core.Budget, now time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		res, err := s.engine.AddIncome(b, amount, description, now)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return res.Budget,
			core.Info("Income added", "%s has been distributed to your categories", core.FormatAmount(amount)),
			[]core.Transaction{res.Transaction}, nil
	})
}

func (s *BudgetService) Withdraw(ctx context.Context, categoryID string, amount decimal.Decimal, description string) (Result, error) {
	return s.apply(ctx, log.OpWithdraw, func(b core.Budget, now time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		res, err := s.engine.Withdraw(b, categoryID, amount, description, now)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return res.Budget,
			core.Info("Withdrawal successful", "%s withdrawn from %s", core.FormatAmount(amount), res.Category.Name),
			[]core.Transaction{res.Transaction}, nil
	})
}

// MakePayment pays immediately. On insufficient funds the returned error
// carries the unmet remainder so the caller can retry with fallbacks.
func (s *BudgetService) MakePayment(ctx context.Context, req engine.PaymentRequest) (Result, error) {
	return s.apply(ctx, log.OpPayment, func(b core.Budget, now time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		req.At = now
		res, err := s.engine.ProcessPayment(b, req)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return res.Budget,
			core.Info("Payment successful", "%s payment completed", core.FormatAmount(req.Amount)),
			[]core.Transaction{res.Transaction}, nil
	})
}

func (s *BudgetService) SchedulePayment(ctx context.Context, req engine.ScheduleRequest) (Result, error) {
	return s.apply(ctx, log.OpSchedule, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, p, err := s.engine.SchedulePayment(b, req)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		kind := "One-time"
		if p.Recurring {
			kind = "Recurring"
		}
		return next,
			core.Info("Payment scheduled", "%s payment scheduled for %s", kind, p.NextDate.Format("Jan 2, 2006")),
			nil, nil
	})
}

func (s *BudgetService) ToggleScheduled(ctx context.Context, id string, active bool) (Result, error) {
	return s.apply(ctx, log.OpToggleScheduled, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, _, err := s.engine.ToggleScheduled(b, id, active)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		if active {
			return next, core.Info("Payment activated", "Scheduled payment has been activated"), nil, nil
		}
		return next, core.Info("Payment paused", "Scheduled payment has been paused"), nil, nil
	})
}

func (s *BudgetService) CancelScheduled(ctx context.Context, id string) (Result, error) {
	return s.apply(ctx, log.OpCancelScheduled, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, _, err := s.engine.CancelScheduled(b, id)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return next, core.Info("Payment canceled", "Scheduled payment has been canceled"), nil, nil
	})
}

func (s *BudgetService) AddCategory(ctx context.Context, in engine.CategoryInput) (Result, error) {
	return s.apply(ctx, log.OpAddCategory, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, c, err := s.engine.AddCategory(b, in)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return next, core.Info("Category added", "%s has been added", c.Name), nil, nil
	})
}

func (s *BudgetService) UpdateCategory(ctx context.Context, id string, in engine.CategoryInput) (Result, error) {
	return s.apply(ctx, log.OpUpdateCategory, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, c, err := s.engine.UpdateCategory(b, id, in)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return next, core.Info("Category updated", "%s has been updated", c.Name), nil, nil
	})
}

func (s *BudgetService) DeleteCategory(ctx context.Context, id string) (Result, error) {
	return s.apply(ctx, log.OpDeleteCategory, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, c, err := s.engine.DeleteCategory(b, id)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		msg := "%s has been deleted"
		if c.Amount.IsPositive() {
			msg += fmt.Sprintf(" and its %s redistributed", core.FormatAmount(c.Amount))
		}
		return next, core.Info("Category deleted", msg, c.Name), nil, nil
	})
}

func (s *BudgetService) UpdatePriorities(ctx context.Context, updates []engine.PriorityUpdate) (Result, error) {
	return s.apply(ctx, log.OpPriorities, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, err := s.engine.UpdatePriorities(b, updates)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return next, core.Info("Priorities updated", "Category priorities and limits have been updated"), nil, nil
	})
}

func (s *BudgetService) MoveCategory(ctx context.Context, id string, dir engine.Direction) (Result, error) {
	return s.apply(ctx, log.OpMoveCategory, func(b core.Budget, _ time.Time) (core.Budget, core.Outcome, []core.Transaction, error) {
		next, err := s.engine.MoveCategory(b, id, dir)
		if err != nil {
			return b, core.Outcome{}, nil, err
		}
		return next, core.Info("Priorities updated", "Category priorities and limits have been updated"), nil, nil
	})
}

// Tick evaluates scheduled payments against the current state. Warnings
// never change state; fired payments are committed once.
func (s *BudgetService) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport
	err := s.submit(ctx, func(ctx context.Context) {
		report = s.scheduler.Tick(ctx, s.state, s.now())
		for _, w := range report.Warnings {
			s.notify(ctx, WarningOutcome(w))
		}
		if !report.Changed() {
			return
		}
		var txs []core.Transaction
		for _, f := range report.Fired {
			if f.Transaction != nil {
				txs = append(txs, *f.Transaction)
			}
		}
		s.commit(ctx, log.OpTick, report.Budget, txs)
		for _, f := range report.Fired {
			s.notify(ctx, FiredOutcome(f))
		}
		report.Budget = report.Budget.Clone()
	})
	return report, err
}

// Snapshot returns a copy of the committed budget.
func (s *BudgetService) Snapshot(ctx context.Context) (core.Budget, error) {
	var b core.Budget
	err := s.submit(ctx, func(context.Context) {
		b = s.state.Clone()
	})
	return b, err
}

func (s *BudgetService) Summary(ctx context.Context) (core.Summary, error) {
	b, err := s.Snapshot(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(b), nil
}

func (s *BudgetService) History(ctx context.Context, f engine.TransactionFilter) ([]core.Transaction, error) {
	b, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return engine.History(b, f), nil
}

// Describe renders the balances as plain text for the CLI.
func Describe(b core.Budget) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Total balance: %s\n", core.FormatAmount(b.TotalBalance))
	for _, c := range b.Categories {
		fmt.Fprintf(&sb, "  %-14s %10s  %5.1f%%", c.Name, core.FormatAmount(c.Amount), c.Percentage)
		if c.IsCapped() {
			fmt.Fprintf(&sb, "  max %s", core.FormatAmount(*c.MaxAmount))
		}
		fmt.Fprintf(&sb, "  priority %d\n", c.EffectivePriority())
	}
	return sb.String()
}
