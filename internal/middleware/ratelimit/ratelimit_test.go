package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, perMinute, burst int) *Limiter {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, Burst: burst, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	return rl
}

func TestLimiter_BurstThenReject(t *testing.T) {
	rl := newTestLimiter(t, 60, 3)
	fixed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"), "clients are limited independently")

	// one token per second at 60/min
	fixed = fixed.Add(time.Second)
	assert.True(t, rl.Allow("1.2.3.4"))

	m := rl.GetMetrics()
	assert.Equal(t, int64(1), m.Rejected)
	assert.Equal(t, int64(2), m.ClientCount)
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl := newTestLimiter(t, 60, 1)
	start := time.Now()
	rl.now = func() time.Time { return start }
	rl.Allow("a")

	rl.now = func() time.Time { return start.Add(11 * time.Minute) }
	rl.Allow("b")

	assert.Equal(t, 1, rl.cleanupStaleEntries())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestLimiter_Middleware(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
