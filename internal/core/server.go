// Package core provides the API chassis for the RentRoll service. It creates
// a chi router and enforces cross-cutting concerns -- panic recovery, request
// correlation, logging, and error handling -- before requests reach
// domain-specific handlers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rentroll/internal/config"
)

// Pinger is the health-probe view of the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server encapsulates the HTTP chassis dependencies, allowing for easy
// injection during testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	DB        Pinger

	// V1RouteRegistrars are called by MountRoutes to register domain handler
	// routes under /v1. The indirection avoids import cycles between core
	// and handler packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
	http   *http.Server
}

// NewServer initializes dependencies and prepares the router for route
// mounting. The caller mounts routes via MountRoutes after registering
// handlers.
func NewServer(cfg *config.Config, db Pinger, logger *slog.Logger) (*Server, error) {
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
		DB:        db,
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration in tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ListenAndServe starts the HTTP listener and blocks until the server stops.
// http.ErrServerClosed (the normal shutdown signal) is swallowed.
func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:              ":" + s.Config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.Logger.Info("http server listening", "port", s.Config.Server.Port)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP listener, letting in-flight requests
// finish until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
