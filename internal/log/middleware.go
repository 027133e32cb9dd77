package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or the default logger
// tagged as http when the request was not routed through Middleware.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentHTTP}
}

// Middleware stores logger, tagged with the request id when requestID
// returns one, in every request context.
func Middleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), l)))
		})
	}
}

// AccessEntry describes one served request.
type AccessEntry struct {
	Method    string
	Path      string
	Query     string
	UserAgent string
	RequestID string
	ClientIP  string
	Status    int
	Duration  time.Duration
}

// NewAccessEntry captures the request side of an access log entry.
func NewAccessEntry(r *http.Request, requestID, clientIP string) AccessEntry {
	return AccessEntry{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		UserAgent: r.Header.Get("User-Agent"),
		RequestID: requestID,
		ClientIP:  clientIP,
	}
}

// HTTPLogger writes access log records.
type HTTPLogger struct {
	logger *Logger
}

func NewHTTPLogger(logger *Logger) *HTTPLogger {
	return &HTTPLogger{logger: logger}
}

// Started logs the request at debug level.
func (h *HTTPLogger) Started(ctx context.Context, e AccessEntry) {
	fields := NewFields().
		WithHTTPRequest(e.Method, e.Path, e.Query, e.UserAgent).
		WithRequestID(e.RequestID).
		WithClientIP(e.ClientIP)

	h.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// Completed logs the response: info below 400, warn for client errors and
// error for server errors.
func (h *HTTPLogger) Completed(ctx context.Context, e AccessEntry) {
	fields := NewFields().
		WithHTTPRequest(e.Method, e.Path, e.Query, "").
		WithHTTPResponse(e.Status, e.Duration.Milliseconds()).
		WithRequestID(e.RequestID).
		WithClientIP(e.ClientIP)

	h.logger.LogContext(ctx, StatusLevel(e.Status), "HTTP request completed", fields.ToSlice()...)
}

// StatusLevel maps an HTTP status to the level its access record uses.
func StatusLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
