// Package metrics serves Prometheus metrics and operational status
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dex_trader/internal/core"
	"dex_trader/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes /metrics, /health and /status on the telemetry port
type Server struct {
	port   int
	logger core.ILogger
	health core.IHealthMonitor
	srv    *http.Server
}

// NewServer creates a metrics server; health may be nil
func NewServer(port int, health core.IHealthMonitor, logger core.ILogger) *Server {
	return &Server{
		port:   port,
		health: health,
		logger: logger.WithField("component", "metrics_server"),
	}
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Run serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting Prometheus metrics server", "port", s.port)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Stopping metrics server")
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	}

	code := http.StatusOK
	if s.health != nil {
		body["components"] = s.health.GetStatus()
		if !s.health.IsHealthy() {
			body["status"] = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// handleStatus reports live gauges kept by the telemetry holder
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	m := telemetry.GetGlobalMetrics()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"active_streams": m.GetActiveStreams(),
		"hub_clients":    m.GetHubClients(),
	})
}
