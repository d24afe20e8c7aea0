package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_auth_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// TwoFactorChecks counts TOTP and backup code verifications by kind and outcome.
	TwoFactorChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_two_factor_checks_total",
			Help: "Total number of two-factor verification attempts",
		},
		[]string{"kind", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
