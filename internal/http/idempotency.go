package http

import (
	"bytes"
	"net/http"
	"strings"

	"salvadanaio/internal/core"
	"salvadanaio/internal/log"
)

const (
	IdempotencyKeyHeader   = "Idempotency-Key"
	IdempotentReplayHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLen   = 128
)

type cachedResponse struct {
	status      int
	contentType string
	body        []byte
}

// recorder tees the response so it can be replayed later.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// idempotent replays the stored response of a mutation sent again with the
// same Idempotency-Key, method and path. Server errors are not stored so the
// client can retry them.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
		if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			BadRequestError("Idempotency-Key is too long").Write(w)
			return
		}

		cacheKey := r.Method + " " + r.URL.Path + " " + key
		if s.replay(w, r, cacheKey) {
			return
		}
		if !s.claim(cacheKey) {
			ErrorResponse(http.StatusConflict,
				core.Failure("Request in progress", "A request with this Idempotency-Key is still being processed")).Write(w)
			return
		}
		defer s.release(cacheKey)

		// The first request may have finished between the lookup and the claim.
		if s.replay(w, r, cacheKey) {
			return
		}

		rec := &recorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status < http.StatusInternalServerError {
			s.replays.Set(cacheKey, cachedResponse{
				status:      rec.status,
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.body.Bytes(),
			})
		}
	})
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, cacheKey string) bool {
	resp, ok := s.replays.Get(cacheKey)
	if !ok {
		return false
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Replaying idempotent response",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	w.Header().Set(IdempotentReplayHeader, "true")
	if resp.contentType != "" {
		w.Header().Set("Content-Type", resp.contentType)
	}
	w.WriteHeader(resp.status)
	_, _ = w.Write(resp.body)
	return true
}

func (s *Server) claim(key string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *Server) release(key string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, key)
}
