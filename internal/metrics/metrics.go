// Package metrics holds the Prometheus collectors shared across the client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks logical requests by final outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_requests_total",
			Help: "Total number of API requests by outcome",
		},
		[]string{"method", "outcome"},
	)

	// AttemptsTotal tracks individual network attempts
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_request_attempts_total",
			Help: "Total number of network attempts, including retries",
		},
		[]string{"method"},
	)

	// RetriesTotal tracks retries scheduled after a retryable failure
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_request_retries_total",
			Help: "Total number of retries scheduled",
		},
		[]string{"kind"},
	)

	// ErrorsTotal tracks classified failures surfaced to callers
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_request_errors_total",
			Help: "Total number of request errors by kind",
		},
		[]string{"kind"},
	)

	// RequestLatency tracks the latency of individual attempts
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intake_request_latency_seconds",
			Help:    "Latency of a single network attempt in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// SessionEventsTotal tracks session expirations, auth failures and 402s
	SessionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_session_events_total",
			Help: "Total number of session guard interventions",
		},
		[]string{"event"},
	)

	// ConnectionOnline is 1 while the backend is believed reachable
	ConnectionOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "intake_connection_online",
			Help: "Whether the client considers itself online",
		},
	)
)
