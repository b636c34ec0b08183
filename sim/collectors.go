package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "hostsim"
	metricsSubsystem = "scheduler"

	// ThreadLabel is the worker thread index.
	ThreadLabel = "thread"
	// PolicyLabel is the scheduler policy name.
	PolicyLabel = "policy"
)

// collectors are the scheduler's prometheus metrics. Each Scheduler
// registers its own set on the registerer it was given.
type collectors struct {
	eventsExecuted *prometheus.CounterVec
	eventsDropped  prometheus.Counter
	rounds         prometheus.Counter
	steals         prometheus.Counter
	migrations     prometheus.Counter
	windowEnd      prometheus.Gauge
	roundDuration  prometheus.Histogram
}

func newCollectors(reg prometheus.Registerer, policy PolicyKind) *collectors {
	factory := promauto.With(reg)
	constLabels := prometheus.Labels{PolicyLabel: string(policy)}
	return &collectors{
		eventsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "events_executed_total",
			Help:        "Events executed, by worker thread.",
			ConstLabels: constLabels,
		}, []string{ThreadLabel}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "events_dropped_total",
			Help:        "Events dropped because they were due after the simulation end time.",
			ConstLabels: constLabels,
		}),
		rounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "rounds_total",
			Help:        "Completed scheduling rounds.",
			ConstLabels: constLabels,
		}),
		steals: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "host_steals_total",
			Help:        "Hosts taken from another thread's unprocessed list.",
			ConstLabels: constLabels,
		}),
		migrations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "host_migrations_total",
			Help:        "Hosts that ran on a different thread than the previous time.",
			ConstLabels: constLabels,
		}),
		windowEnd: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "round_window_end_ns",
			Help:        "End of the current round window in simulated nanoseconds.",
			ConstLabels: constLabels,
		}),
		roundDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        "round_duration_seconds",
			Help:        "Wall-clock time spent in one round, from release to the last worker finishing.",
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 12),
			ConstLabels: constLabels,
		}),
	}
}
