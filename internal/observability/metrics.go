package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "farmsim"

// Metrics holds the Prometheus counters, histograms, and gauges for the simulation service.
type Metrics struct {
	StepsTotal     prometheus.Counter
	HarvestsTotal  *prometheus.CounterVec // labels: crop
	HistoryRecords prometheus.Gauge
	AverageHealth  prometheus.Gauge

	// Batch metrics.
	BatchSize     prometheus.Histogram
	BatchDuration prometheus.Histogram

	// Collaborator metrics.
	PersistErrors     prometheus.Counter
	RecordsPublished  prometheus.Counter
	PublishErrors     prometheus.Counter
	AutoRunnerRunning prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		StepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total simulated days appended to history.",
		}),
		HarvestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "harvests_total",
			Help:      "Harvest events by crop.",
		}, []string{"crop"}),
		HistoryRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_records",
			Help:      "Records currently held in the in-memory history.",
		}),
		AverageHealth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "average_field_health",
			Help:      "Average field health after the latest simulated day.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size_days",
			Help:      "Days requested per batch run.",
			Buckets:   []float64{1, 7, 14, 30, 60, 90, 180, 365},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of a batch run including persistence and publishing.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Failed history saves.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Records written to the publish topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publish attempts.",
		}),
		AutoRunnerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auto_runner_running",
			Help:      "1 when the interval stepper is active, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all simulation metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.StepsTotal,
		m.HarvestsTotal,
		m.HistoryRecords,
		m.AverageHealth,
		m.BatchSize,
		m.BatchDuration,
		m.PersistErrors,
		m.RecordsPublished,
		m.PublishErrors,
		m.AutoRunnerRunning,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
