// Package web exposes the resolution pipeline over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkusaka/hinichi/internal/dates"
	"github.com/mkusaka/hinichi/internal/service"
)

// Resolver is the piece of the pipeline the handlers need.
type Resolver interface {
	Resolve(ctx context.Context, req service.Request) (*service.Response, error)
}

type Server struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewServer(resolver Resolver, logger *slog.Logger) *Server {
	return &Server{
		resolver: resolver,
		logger:   logger.With("component", "web"),
	}
}

// Handler builds the route table. GET /{category} serves the default date,
// GET /{category}/{date} a pinned one.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{category}", s.handleListing)
	mux.HandleFunc("GET /{category}/{date}", s.handleListing)
	return s.withRequestLog(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	date := r.PathValue("date")
	if date != "" && !dates.Valid(date) {
		http.Error(w, "date must be a valid YYYYMMDD day", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	req := service.Request{
		Category:    category,
		Date:        date,
		Format:      q.Get("format"),
		WithSummary: isTruthy(q.Get("summary")),
		Revalidate:  isTruthy(q.Get("revalidate")),
	}

	resp, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.logger.Error("resolve failed", "category", category, "date", date, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	if resp.FromCache {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
