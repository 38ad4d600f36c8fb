// Package api provides the indexer's status HTTP surface. It is process
// infrastructure, not a query API over the ledger.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/pool-ledger/internal/config"
	"github.com/pool-ledger/internal/logging"
	"github.com/pool-ledger/internal/processor"
)

// HealthCheck probes one dependency; a nil error means healthy
type HealthCheck func(ctx context.Context) error

// Server serves health and run-status endpoints for the indexer
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	proc       *processor.Processor
	checks     map[string]HealthCheck
	logger     *logging.Logger
}

// NewServer creates the status server
func NewServer(cfg *config.ServerConfig, proc *processor.Processor, checks map[string]HealthCheck, logger *logging.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		proc:   proc,
		checks: checks,
		logger: logger,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/status", s.handleStatus).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]interface{}{
		"status":  "healthy",
		"service": "pool-ledger",
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	s.respondJSON(w, status, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.proc.Status())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Warn("Failed to write response")
	}
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting status server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down status server")
	return s.httpServer.Shutdown(ctx)
}
