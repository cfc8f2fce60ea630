package cms

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts content repository calls by operation and outcome.
	// Outcomes: ok, error, timeout, rejected.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vlsiclub_cms_requests_total",
			Help: "Content repository requests by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// RequestDuration measures content repository latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vlsiclub_cms_request_duration_seconds",
			Help:    "Content repository request latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"op"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vlsiclub_cms_circuit_breaker_state",
		Help: "Content repository circuit breaker state (0 closed, 1 half-open, 2 open).",
	})
)
