package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/msgmaxim/onionreq/internal/logging"
	"github.com/msgmaxim/onionreq/internal/metrics"
)

// Server exposes the aggregated onion test results over HTTP, alongside
// health/readiness probes and a Prometheus metrics endpoint.
type Server struct {
	aggregator    *Aggregator
	db            *ResultsDB
	health        *metrics.HealthChecker
	log           *logging.Logger
	metrics       *metrics.PrometheusMetrics
	staticDir     string
	httpServer    *http.Server
	metricsServer *http.Server

	mu      sync.RWMutex
	started bool
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr          string
	MetricsAddr   string
	MetricsPath   string
	StaticDir     string
	MetricsEnabled bool
}

// NewServer builds a results Server.
func NewServer(agg *Aggregator, db *ResultsDB, health *metrics.HealthChecker, log *logging.Logger, m *metrics.PrometheusMetrics, cfg ServerConfig) *Server {
	return &Server{
		aggregator: agg,
		db:         db,
		health:     health,
		log:        log.WithComponent("http"),
		metrics:    m,
		staticDir:  cfg.StaticDir,
	}
}

// Start begins serving. It blocks until the server stops or errors.
func (s *Server) Start(cfg ServerConfig) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/health", s.health.HealthHandler())
	mux.HandleFunc("/live", s.health.LivenessHandler())
	mux.HandleFunc("/ready", s.health.ReadinessHandler(func() bool { return true }))

	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	if cfg.MetricsEnabled {
		go s.startMetricsServer(cfg)
	}

	s.log.Info().Str("addr", cfg.Addr).Msg("starting results server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) startMetricsServer(cfg ServerConfig) {
	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, s.metrics.Handler())

	s.metricsServer = &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	s.log.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
	if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.log.Error().Err(err).Msg("metrics server error")
	}
}

// Shutdown gracefully stops both listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.log.Error().Err(err).Msg("metrics server shutdown error")
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Error().Err(err).Msg("results database close error")
		}
	}
	return s.httpServer.Shutdown(ctx)
}

// handleData serves every retained aggregated bucket as JSON, permissive
// CORS so a browser-hosted dashboard on a different origin can fetch it
// directly.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	buckets := s.aggregator.Buckets()
	if err := json.NewEncoder(w).Encode(buckets); err != nil {
		s.log.Error().Err(err).Msg("failed to encode /data response")
	}
}
