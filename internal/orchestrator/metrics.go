package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the orchestrator-level collectors.
type Metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	activeRequests prometheus.Gauge
}

var (
	defaultOnce     sync.Once
	defaultInstance *Metrics
)

// defaultMetrics registers on the global registry exactly once.
func defaultMetrics() *Metrics {
	defaultOnce.Do(func() {
		defaultInstance = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultInstance
}

// MustNewMetrics builds and registers the collectors, panicking on a
// registration conflict.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maestro",
			Subsystem: "orchestrator",
			Name:      "requests_total",
			Help:      "Requests by route and outcome.",
		}, []string{"route", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "maestro",
			Subsystem: "orchestrator",
			Name:      "request_duration_seconds",
			Help:      "End-to-end request duration by route.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "maestro",
			Subsystem: "orchestrator",
			Name:      "requests_active",
			Help:      "Requests currently in flight.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.activeRequests)
	return m
}
