package crawler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "expertfinder"
	metricsSubsystem = "crawler"
)

// metrics are the crawl progress gauges and counters.
type metrics struct {
	users          prometheus.Gauge
	completedUsers prometheus.Gauge
	resources      prometheus.Gauge

	steps         prometheus.Counter
	stepDuration  prometheus.Histogram
	sourceFailure *prometheus.CounterVec
	discarded     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &metrics{
		users:          gauge("users", "Number of users in the graph"),
		completedUsers: gauge("completed_users", "Number of users that left the crawl window"),
		resources:      gauge("resources", "Number of resources in the graph"),
		steps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "steps_total",
			Help:      "Total number of visited users",
		}),
		stepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "step_duration_seconds",
			Help:      "Duration of one crawl step in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		sourceFailure: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "source_failures_total",
			Help:      "Source calls given up after retrying",
		}, []string{"call"}),
		discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "discarded_resources_total",
			Help:      "Resources not stored because their text is not English",
		}),
	}
}
