// Package api exposes the HTTP read interface over persisted observations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stridewatch/stridewatch/internal/catalog"
	"github.com/stridewatch/stridewatch/internal/metrics"
	"github.com/stridewatch/stridewatch/internal/store"
)

// ReadStore is the storage surface the API serves from.
type ReadStore interface {
	LatestBySize(ctx context.Context, sizeID string) (catalog.ObservationState, error)
	HistoryBySize(ctx context.Context, sizeID string, limit int) ([]catalog.ObservationState, error)
	ChangesSince(ctx context.Context, since time.Time, limit int) ([]catalog.ObservationState, error)
	ObservationStats(ctx context.Context) (store.Stats, error)
}

// Server wires HTTP handlers to the observation store.
type Server struct {
	router chi.Router
	reads  ReadStore
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(reads ReadStore, logger *zap.Logger) *Server {
	s := &Server{
		reads:  reads,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/sizes/{size_id}", func(r chi.Router) {
			r.Get("/latest", s.getLatest)
			r.Get("/history", s.getHistory)
		})
		r.Get("/changes", s.getChanges)
		r.Get("/stats", s.getStats)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.reads.ObservationStats(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getLatest(w http.ResponseWriter, r *http.Request) {
	sizeID := chi.URLParam(r, "size_id")
	state, err := s.reads.LatestBySize(r.Context(), sizeID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "size not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch latest observation")
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	sizeID := chi.URLParam(r, "size_id")
	limit := queryInt(r, "limit", 100)
	states, err := s.reads.HistoryBySize(r.Context(), sizeID, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"size_id":      sizeID,
		"observations": states,
	})
}

func (s *Server) getChanges(w http.ResponseWriter, r *http.Request) {
	sinceParam := r.URL.Query().Get("since")
	since := time.Now().Add(-24 * time.Hour)
	if sinceParam != "" {
		parsed, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = parsed
	}
	limit := queryInt(r, "limit", 500)
	states, err := s.reads.ChangesSince(r.Context(), since, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch changes")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"since":   since,
		"changes": states,
	})
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reads.ObservationStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch stats")
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
