// Package core provides the HTTP chassis for the street-crime service. It
// builds a chi router, applies cross-cutting middleware (recovery, deadlines,
// correlation IDs, logging, CORS, compression, metrics) and writes the
// standard JSON envelopes before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"streetcrime/internal/config"
)

// MetricsCollector records API request telemetry.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// Server holds the dependencies of the HTTP API so tests can inject their
// own.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler

	// HealthProbes are run by GET /health.
	HealthProbes []HealthProbe

	// V1RouteRegistrars mount domain handlers under /v1. They are populated
	// by main to avoid an import cycle between core and the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// Closers run on Shutdown in registration order.
	Closers []func(context.Context) error

	router *chi.Mux
}

// NewServer validates critical dependencies and prepares an empty router.
// The caller mounts routes after construction.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server-owned resources. All closers run; the first error
// is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var first error
	for _, closer := range s.Closers {
		if err := closer(ctx); err != nil {
			s.Logger.Error("error closing resource", "error", err)
			if first == nil {
				first = fmt.Errorf("closing resources: %w", err)
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return first
}
