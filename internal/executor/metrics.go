package executor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report executor activity.
type Metrics struct {
	taskDuration    *prometheus.HistogramVec
	taskOutcomes    *prometheus.CounterVec
	tasksActive     prometheus.Gauge
	peakParallelism prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. The collectors are created only once to
// avoid duplicate registration panics when multiple executors are
// constructed (unit tests, repeated runs).
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided
// registerer. Callers that need unique metric names (tests) should supply a
// fresh registry. Registration errors panic, mirroring promauto semantics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "maestro",
			Subsystem: "executor",
			Name:      "task_duration_seconds",
			Help:      "Duration of each sub-task execution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"domain", "status"},
	)
	taskOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maestro",
			Subsystem: "executor",
			Name:      "task_outcomes_total",
			Help:      "Sub-task terminal statuses.",
		},
		[]string{"domain", "status"},
	)
	tasksActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "maestro",
			Subsystem: "executor",
			Name:      "tasks_active",
			Help:      "Number of sub-tasks currently executing.",
		},
	)
	peakParallelism := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "maestro",
			Subsystem: "executor",
			Name:      "peak_parallelism",
			Help:      "Highest number of concurrently executing sub-tasks observed in the last run.",
		},
	)

	for _, collector := range []prometheus.Collector{taskDuration, taskOutcomes, tasksActive, peakParallelism} {
		reg.MustRegister(collector)
	}
	return &Metrics{
		taskDuration:    taskDuration,
		taskOutcomes:    taskOutcomes,
		tasksActive:     tasksActive,
		peakParallelism: peakParallelism,
	}
}
