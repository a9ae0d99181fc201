package control

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/intake/internal/connection"
	"github.com/vietddude/intake/internal/infra/transport"
)

// SystemStatus is the aggregate health of the client.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// HealthReport is the body of /health/detailed.
type HealthReport struct {
	Status     SystemStatus      `json:"status"`
	Connection connection.Status `json:"connection"`
	Backend    BackendHealth     `json:"backend"`
	CheckedAt  time.Time         `json:"checked_at"`
}

// BackendHealth summarizes the transport statistics.
type BackendHealth struct {
	Status         string  `json:"status"`
	AverageLatency string  `json:"average_latency"`
	Requests       int     `json:"requests"`
	Failures       int     `json:"failures"`
	ErrorRate      float64 `json:"error_rate"`
	ThrottleCount  int     `json:"throttle_count"`
	RetryAfter     string  `json:"retry_after,omitempty"`
}

// HealthServer exposes health and Prometheus endpoints.
type HealthServer struct {
	conn    *connection.Monitor
	backend *transport.Monitor
	server  *http.Server
}

// NewHealthServer creates a health server on port.
func NewHealthServer(conn *connection.Monitor, backend *transport.Monitor, port int) *HealthServer {
	mux := http.NewServeMux()
	s := &HealthServer{
		conn:    conn,
		backend: backend,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler returns the server's routes.
func (s *HealthServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Stop is called.
func (s *HealthServer) Start() error {
	return s.server.ListenAndServe()
}

// Stop shuts the server down.
func (s *HealthServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Report builds the current health report. Offline is critical; a slow,
// failing or throttling backend is degraded.
func (s *HealthServer) Report() HealthReport {
	stats := s.backend.Stats()
	report := HealthReport{
		Status:     StatusHealthy,
		Connection: connection.StatusOnline,
		Backend: BackendHealth{
			Status:         stats.Status.String(),
			AverageLatency: stats.AverageLatency.String(),
			Requests:       stats.Requests,
			Failures:       stats.Failures,
			ErrorRate:      stats.ErrorRate,
			ThrottleCount:  stats.ThrottleCount,
		},
		CheckedAt: time.Now().UTC(),
	}
	if wait := s.backend.RetryAfter(); wait > 0 {
		report.Backend.RetryAfter = wait.String()
	}

	switch {
	case !s.conn.IsOnline():
		report.Connection = connection.StatusOffline
		report.Status = StatusCritical
	case stats.Status != transport.StatusHealthy:
		report.Status = StatusDegraded
	}
	return report
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.Report()

	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusCritical {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": string(report.Status)})
}

func (s *HealthServer) handleDetailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.Report())
}
