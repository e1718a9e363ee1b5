package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
)

// StatusSource provides the pool snapshot served on /status.
type StatusSource interface {
	Status() pool.Status
}

// Sweeper triggers one out-of-band idle sweep.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Server provides HTTP endpoints for Prometheus metrics, health checks,
// the pool status snapshot and the manual sweep trigger.
type Server struct {
	addr    string
	server  *http.Server
	logger  *slog.Logger
	status  StatusSource
	sweeper Sweeper
}

// NewServer creates a new metrics server.
func NewServer(addr string, status StatusSource, sweeper Sweeper, logger *slog.Logger) *Server {
	s := &Server{
		addr:    addr,
		logger:  logger,
		status:  status,
		sweeper: sweeper,
	}

	mux := http.NewServeMux()

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/healthz", healthHandler)

	// Pool snapshot and manual sweep
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/sweep", s.sweepHandler)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	return s
}

// healthHandler handles health check requests.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// statusHandler serves the pool snapshot as JSON.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.status.Status()); err != nil {
		s.logger.Error("status_encode_failed", "error", err)
	}
}

// sweepHandler triggers one idle sweep. POST only.
func (s *Server) sweepHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sweeper == nil {
		http.Error(w, "sweeper unavailable", http.StatusServiceUnavailable)
		return
	}

	evicted := s.sweeper.Sweep(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"evicted": evicted})
}

// Start starts the metrics server in a goroutine.
// Returns immediately. Use Shutdown to stop.
func (s *Server) Start() error {
	s.logger.Info("metrics_server_starting", "addr", s.addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics_server_error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Debug("metrics_server_shutting_down")
	return s.server.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.addr
}
