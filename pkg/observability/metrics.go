// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the member portal.
package observability

import "github.com/prometheus/client_golang/prometheus"

// HTTPBuckets defines histogram buckets for request latencies. Login and
// registration run bcrypt at cost 12, so the upper buckets reach seconds.
var HTTPBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberportal_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memberportal_request_duration_seconds",
			Help:    "Request duration",
			Buckets: HTTPBuckets,
		},
		[]string{"method"},
	)

	// GateDecisionsTotal counts request gate outcomes: public, allowed,
	// unauthenticated, invalid_token, forbidden.
	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberportal_gate_decisions_total",
			Help: "Request gate decisions",
		},
		[]string{"decision"},
	)

	// LoginAttemptsTotal counts login attempts by outcome.
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberportal_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"outcome"},
	)

	// RegistrationsTotal counts registration attempts by outcome.
	RegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberportal_registrations_total",
			Help: "Registrations",
		},
		[]string{"outcome"},
	)

	// AccountDecisionsTotal counts administrator actions on accounts.
	AccountDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberportal_account_decisions_total",
			Help: "Account approval, rejection and suspension actions",
		},
		[]string{"action"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memberportal_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"scope"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		GateDecisionsTotal,
		LoginAttemptsTotal,
		RegistrationsTotal,
		AccountDecisionsTotal,
		RateLimitRejectedTotal,
	)
}
