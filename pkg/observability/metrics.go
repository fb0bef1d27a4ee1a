// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the timesync server.
package observability

import "github.com/prometheus/client_golang/prometheus"

// APIBuckets defines histogram buckets suited for CRUD API latencies,
// ranging from 1ms to 10s.
var APIBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesync_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timesync_request_duration_seconds",
			Help:    "Request duration",
			Buckets: APIBuckets,
		},
		[]string{"method"},
	)

	// AuthAttemptsTotal counts authentication attempts by credential type
	// and outcome (success/failure).
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesync_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"type", "outcome"},
	)

	// TokensIssuedTotal counts tokens minted at login by credential type.
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timesync_tokens_issued_total",
			Help: "Tokens issued",
		},
		[]string{"type"},
	)

	// TokensRevokedTotal counts tokens revoked through logout.
	TokensRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "timesync_tokens_revoked_total",
			Help: "Tokens revoked",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthAttemptsTotal,
		TokensIssuedTotal,
		TokensRevokedTotal,
	)
}
