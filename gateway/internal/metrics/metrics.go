package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthGate metrics
	AuthDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_decisions_total",
			Help: "Authentication decisions by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_login_rate_limit_hits_total",
			Help: "Login attempts rejected by the rate limiter",
		},
	)

	// Proxy metrics
	ProxyRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_proxy_requests_total",
			Help: "Proxy requests by outcome",
		},
		[]string{"outcome"},
	)

	ProxyUpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_proxy_upstream_duration_seconds",
			Help:    "Duration of upstream calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Audit metrics
	AuditSinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_audit_sink_errors_total",
			Help: "Audit sink failures by sink and operation",
		},
		[]string{"sink", "op"},
	)

	AuditFallbackEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_audit_fallback_entries",
			Help: "Entries currently held by the fallback audit buffer",
		},
	)
)

// Proxy outcomes.
const (
	OutcomeForwarded = "forwarded"
	OutcomeInvalid   = "invalid"
	OutcomeForbidden = "forbidden"
	OutcomeFailed    = "failed"
)

// Auth results.
const (
	ResultAccept = "accept"
	ResultReject = "reject"
	ResultSkip   = "skip"
)
