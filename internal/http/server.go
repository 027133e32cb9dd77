package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"salvadanaio/internal/cache"
	"salvadanaio/internal/core"
	"salvadanaio/internal/engine"
	"salvadanaio/internal/log"
	"salvadanaio/internal/middleware/ratelimit"
	"salvadanaio/internal/middleware/security"
	"salvadanaio/internal/middleware/trace"
	"salvadanaio/internal/notify"
	"salvadanaio/internal/services"
)

// BudgetAPI is the part of the budget service the handlers use.
type BudgetAPI interface {
	AddIncome(ctx context.Context, amount decimal.Decimal, description string) (services.Result, error)
	Withdraw(ctx context.Context, categoryID string, amount decimal.Decimal, description string) (services.Result, error)
	MakePayment(ctx context.Context, req engine.PaymentRequest) (services.Result, error)
	SchedulePayment(ctx context.Context, req engine.ScheduleRequest) (services.Result, error)
	ToggleScheduled(ctx context.Context, id string, active bool) (services.Result, error)
	CancelScheduled(ctx context.Context, id string) (services.Result, error)
	AddCategory(ctx context.Context, in engine.CategoryInput) (services.Result, error)
	UpdateCategory(ctx context.Context, id string, in engine.CategoryInput) (services.Result, error)
	DeleteCategory(ctx context.Context, id string) (services.Result, error)
	UpdatePriorities(ctx context.Context, updates []engine.PriorityUpdate) (services.Result, error)
	MoveCategory(ctx context.Context, id string, dir engine.Direction) (services.Result, error)
	Tick(ctx context.Context) (services.TickReport, error)
	Snapshot(ctx context.Context) (core.Budget, error)
	Summary(ctx context.Context) (core.Summary, error)
	History(ctx context.Context, f engine.TransactionFilter) ([]core.Transaction, error)
	IsRunning() bool
}

var _ BudgetAPI = (*services.BudgetService)(nil)

const (
	// IdempotencyTTL is how long a response is replayed for a repeated key.
	IdempotencyTTL     = 10 * time.Minute
	idempotencyEntries = 1000
)

type Server struct {
	http.Server
	svc       BudgetAPI
	hub       *notify.Hub
	validator *CustomValidator
	logger    *log.Logger
	ready     func(ctx context.Context) error

	detector    *security.Detector
	tracer      *trace.Middleware
	rateLimiter *ratelimit.Limiter
	rateConfig  ratelimit.Config
	replays     *cache.LRUCache[cachedResponse]

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	// closed when the server shuts down so event streams end
	done         chan struct{}
	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithReadyCheck adds a dependency check to /readyz, such as a storage ping.
func WithReadyCheck(fn func(ctx context.Context) error) Option {
	return func(s *Server) { s.ready = fn }
}

func WithRateLimit(cfg ratelimit.Config) Option {
	return func(s *Server) { s.rateConfig = cfg }
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, svc BudgetAPI, hub *notify.Hub, opts ...Option) *Server {
	s := &Server{
		svc:        svc,
		hub:        hub,
		validator:  NewValidator(),
		logger:     log.Discard(),
		rateConfig: ratelimit.DefaultConfig(),
		replays:    cache.NewLRUCache[cachedResponse](idempotencyEntries, IdempotencyTTL),
		inflight:   make(map[string]struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = notify.NewHub()
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.detector = security.NewDetector(s.logger)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)
	s.rateLimiter = ratelimit.NewLimiter(s.rateConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/budget", s.handleBudget)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("POST /api/income", s.handleAddIncome)
	mux.HandleFunc("POST /api/withdrawals", s.handleWithdraw)
	mux.HandleFunc("POST /api/payments", s.handleMakePayment)

	mux.HandleFunc("POST /api/categories", s.handleAddCategory)
	mux.HandleFunc("PUT /api/categories/priorities", s.handleUpdatePriorities)
	mux.HandleFunc("PUT /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/{id}/move", s.handleMoveCategory)

	mux.HandleFunc("POST /api/scheduled-payments", s.handleSchedulePayment)
	mux.HandleFunc("PATCH /api/scheduled-payments/{id}", s.handleToggleScheduled)
	mux.HandleFunc("DELETE /api/scheduled-payments/{id}", s.handleCancelScheduled)
	mux.HandleFunc("POST /api/scheduler/tick", s.handleTick)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// chain wraps the mux, outermost first: tracing, request-scoped logger,
// scanner detection, security headers, rate limiting of mutations and
// Idempotency-Key replay.
func (s *Server) chain(mux http.Handler) http.Handler {
	var h http.Handler = s.idempotent(mux)
	h = s.limitMutations(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = log.Middleware(s.logger, trace.RequestIDFromRequest)(h)
	return s.tracer.Middleware(h)
}

// limitMutations applies the per-IP limiter to everything but reads.
func (s *Server) limitMutations(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests,
			core.Failure("Too many requests", "Please try again later")).Write(w)
	})(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// ReplayCache exposes the Idempotency-Key cache so its expired entries can
// be swept by a cache.Manager.
func (s *Server) ReplayCache() cache.Cleaner {
	return s.replays
}

// Shutdown ends event streams, stops the rate limiter and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.done)
		s.logTraffic(ctx)
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// logTraffic summarizes the middleware counters collected since startup.
func (s *Server) logTraffic(ctx context.Context) {
	traced := s.tracer.GetMetrics()
	limited := s.rateLimiter.GetMetrics()
	scans := s.detector.GetMetrics()
	s.logger.InfoContext(ctx, "HTTP traffic summary",
		"requests", traced.TotalRequests,
		"server_errors", traced.ServerErrors,
		"rate_limited", limited.Rejected,
		"active_clients", limited.ClientCount,
		"blocked", scans.BlockedRequests,
		"suspicious", scans.SuspiciousRequests)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.svc.IsRunning() {
		http.Error(w, "budget service not running", http.StatusServiceUnavailable)
		return
	}
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "storage not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
