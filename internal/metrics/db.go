package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dependencies checked by /healthz.
const (
	DepDatabase = "database"
	DepRedis    = "redis"
)

var (
	depUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "tracker",
		Subsystem: "dependency",
		Name:      "up",
		Help:      "Result of the last health check per dependency (1=up, 0=down).",
	}, []string{"dependency", "backend"})

	depPingSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tracker",
		Subsystem: "dependency",
		Name:      "ping_seconds",
		Help:      "Health check latency per dependency.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"dependency", "backend"})
)

// ObservePing records one check of dep. backend distinguishes e.g. postgres
// from sqlite for the database.
func ObservePing(dep, backend string, took time.Duration, err error) {
	depPingSeconds.WithLabelValues(dep, backend).Observe(took.Seconds())
	up := 1.0
	if err != nil {
		up = 0
	}
	depUp.WithLabelValues(dep, backend).Set(up)
}
