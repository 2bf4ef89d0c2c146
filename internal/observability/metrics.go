package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ndvi"

// Metrics holds the Prometheus collectors for dataset loading, queries and export.
type Metrics struct {
	RowsLoaded          prometheus.Counter
	RowsRejected        prometheus.Counter
	DatasetObservations prometheus.Gauge

	Queries       *prometheus.CounterVec   // labels: kind={weekly,area,comparison}, outcome={ok,invalid,not_found,error}
	QueryDuration *prometheus.HistogramVec // labels: kind
	ClassifyCache *prometheus.CounterVec   // labels: result={hit,miss}

	RecordsExported prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Observation rows parsed successfully.",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "Observation rows rejected as malformed.",
		}),
		DatasetObservations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_observations",
			Help:      "Observations in the currently loaded dataset.",
		}),
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Aggregation queries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Aggregation query duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"kind"}),
		ClassifyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classify_cache_total",
			Help:      "Classified dataset cache lookups by result.",
		}, []string{"result"}),
		RecordsExported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_exported_total",
			Help:      "Weekly records written to the export sink.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsLoaded,
		m.RowsRejected,
		m.DatasetObservations,
		m.Queries,
		m.QueryDuration,
		m.ClassifyCache,
		m.RecordsExported,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
