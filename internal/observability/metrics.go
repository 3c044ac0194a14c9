package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wxprofiler_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the conversion pipeline.
type Metrics struct {
	JobsConsumed     prometheus.Counter
	GridsProduced    *prometheus.CounterVec // labels: instrument
	ConversionErrors prometheus.Counter
	DuplicateJobs    prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Conversion metrics.
	ConversionDuration *prometheus.HistogramVec // labels: instrument={lidar,radiometer,balloon}
	ConversionWarnings *prometheus.CounterVec   // labels: instrument
	LedgerEnabled      prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		JobsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_consumed_total",
			Help:      "Total conversion jobs read from the source topic.",
		}),
		GridsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grids_produced_total",
			Help:      "Total grids written to the sink topic by instrument.",
		}, []string{"instrument"}),
		ConversionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_errors_total",
			Help:      "Total conversion failures.",
		}),
		DuplicateJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_jobs_total",
			Help:      "Jobs skipped because the ledger already holds their inputs.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of jobs per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ConversionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversion_duration_seconds",
			Help:      "Duration of a single file-set conversion by instrument.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"instrument"}),
		ConversionWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_warnings_total",
			Help:      "Non-fatal degraded conditions reported by conversions.",
		}, []string{"instrument"}),
		LedgerEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_enabled",
			Help:      "1 when duplicate detection through the conversion ledger is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.JobsConsumed,
		m.GridsProduced,
		m.ConversionErrors,
		m.DuplicateJobs,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.ConversionDuration,
		m.ConversionWarnings,
		m.LedgerEnabled,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics registered with a fresh registry to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}
