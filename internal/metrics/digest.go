package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// digestRunsTotal counts finished dispatcher runs.
	// Labels:
	// - report: overdue-alerts | inspection-reminders
	// - status: completed | nothing_to_send | failed | locked
	digestRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "digest",
			Name:      "runs_total",
			Help:      "Digest runs by report and terminal status.",
		},
		[]string{"report", "status"},
	)

	// digestEmailsTotal counts per-recipient delivery attempts.
	// Labels:
	// - report: overdue-alerts | inspection-reminders
	// - result: sent | failed
	digestEmailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracker",
			Subsystem: "digest",
			Name:      "emails_total",
			Help:      "Digest emails by report and delivery result.",
		},
		[]string{"report", "result"},
	)

	digestRunSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tracker",
			Subsystem: "digest",
			Name:      "run_duration_seconds",
			Help:      "Digest run duration in seconds.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"report"},
	)

	// digestLastSuccess is the unix time of the last run that reached a terminal
	// success state (completed or nothing_to_send).
	digestLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tracker",
			Subsystem: "digest",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful digest run.",
		},
		[]string{"report"},
	)
)

// ObserveDigestRun records a finished run.
func ObserveDigestRun(report, status string, took time.Duration) {
	if report == "" {
		report = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	digestRunsTotal.WithLabelValues(report, status).Inc()
	digestRunSeconds.WithLabelValues(report).Observe(took.Seconds())
	if status == "completed" || status == "nothing_to_send" {
		digestLastSuccess.WithLabelValues(report).SetToCurrentTime()
	}
}

// AddDigestEmails adds delivery outcomes for one run.
func AddDigestEmails(report string, sent, failed int) {
	if report == "" {
		report = "unknown"
	}
	digestEmailsTotal.WithLabelValues(report, "sent").Add(float64(sent))
	digestEmailsTotal.WithLabelValues(report, "failed").Add(float64(failed))
}
