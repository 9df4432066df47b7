package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/practice-api/internal/model"
)

// Metrics holds all application metrics
type Metrics struct {
	// Cascade metrics
	CascadeSteps    *prometheus.CounterVec
	CascadeFailures *prometheus.CounterVec
	CascadeDuration *prometheus.HistogramVec

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec

	// Collaborator metrics
	GeneratorCalls *prometheus.CounterVec
	AssetReleases  *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New builds unregistered collectors; call Register to expose them.
func New(namespace string) *Metrics {
	return &Metrics{
		CascadeSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "steps_total",
			Help:      "Cascade steps by operation, step and outcome",
		}, []string{"operation", "step", "status"}),
		CascadeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "partial_failures_total",
			Help:      "Cascades that stopped after committing some steps",
		}, []string{"operation"}),
		CascadeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cascade",
			Name:      "duration_seconds",
			Help:      "Time spent running a cascade",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"operation"}),
		OutboxEventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_processed_total",
			Help:      "Total number of outbox events processed",
		}),
		OutboxEventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Total number of outbox events that failed processing",
		}),
		OutboxProcessingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		GeneratorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_calls_total",
			Help:      "Calls to the text generator by outcome",
		}, []string{"status"}),
		AssetReleases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_releases_total",
			Help:      "Binary asset release attempts by outcome",
		}, []string{"status"}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// Register exposes every collector on reg.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.CascadeSteps,
		m.CascadeFailures,
		m.CascadeDuration,
		m.OutboxEventsProcessed,
		m.OutboxEventsFailed,
		m.OutboxProcessingLatency,
		m.OutboxRetries,
		m.GeneratorCalls,
		m.AssetReleases,
		m.DatabaseOperations,
	)
}

// ObserveReport counts every step of a finished cascade, nested ones included.
func (m *Metrics) ObserveReport(r *model.Report, started time.Time) {
	if m == nil || r == nil {
		return
	}
	m.CascadeDuration.WithLabelValues(r.Operation).Observe(time.Since(started).Seconds())
	m.observeSteps(r)
	if _, failed := r.Failure(); failed {
		m.CascadeFailures.WithLabelValues(r.Operation).Inc()
	}
}

func (m *Metrics) observeSteps(r *model.Report) {
	for _, s := range r.Steps {
		m.CascadeSteps.WithLabelValues(r.Operation, s.Step, string(s.Status)).Inc()
	}
	for _, n := range r.Nested {
		m.observeSteps(n)
	}
}
