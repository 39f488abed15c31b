// Package server exposes the daemon's HTTP surface: health, Prometheus
// metrics and a manual run trigger. There is no configuration editing UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gxliu28/gas-bot/internal/reminder"
)

// RunTrigger starts one reminder run and reports its summary.
type RunTrigger func(ctx context.Context) (*reminder.Summary, error)

// Server is the daemon HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates the HTTP server. metricsHandler may be nil to disable the
// metrics endpoint.
func New(addr string, metricsHandler http.Handler, trigger RunTrigger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Post("/run", func(w http.ResponseWriter, req *http.Request) {
		summary, err := trigger(req.Context())
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, reminder.ErrMissingToken) {
				status = http.StatusPreconditionFailed
			}
			logger.Error("manual run failed", "error", err)
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Minute, // a manual run may take a while
		},
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
