package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rateLimitExceeded counts HTTP 429 events from the rate limit middleware.
	// Labels:
	// - endpoint: short name like "cron:overdue-alerts"
	// - source:   "ip" or "staff"
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "http",
			Name:      "rate_limit_exceeded_total",
			Help:      "Number of requests rejected due to rate limiting (HTTP 429)",
		},
		[]string{"endpoint", "source"},
	)

	// cronAuthFailures counts trigger requests rejected for a bad or missing token.
	cronAuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "http",
			Name:      "cron_unauthorized_total",
			Help:      "Cron trigger requests rejected with 401.",
		},
		[]string{"report"},
	)
)

// IncRateLimitExceeded increments the 429 counter for the given endpoint and source.
func IncRateLimitExceeded(endpoint, source string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	if source == "" {
		source = "unknown"
	}
	rateLimitExceeded.WithLabelValues(endpoint, source).Inc()
}

// IncCronUnauthorized increments the rejected trigger counter.
func IncCronUnauthorized(report string) {
	if report == "" {
		report = "unknown"
	}
	cronAuthFailures.WithLabelValues(report).Inc()
}
