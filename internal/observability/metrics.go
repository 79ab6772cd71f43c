package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// acquisition engine.
type Metrics struct {
	// Upstream fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: kind, outcome={success,error,rate_limited}
	FetchDuration *prometheus.HistogramVec // labels: kind

	// Batch scheduling metrics.
	BatchesDispatched prometheus.Counter
	BatchDuration     prometheus.Histogram
	RateLimitRetries  prometheus.Counter

	// Normalization metrics.
	RecordsNormalized *prometheus.CounterVec // labels: kind
	MalformedRecords  *prometheus.CounterVec // labels: kind

	// Cache and serving metrics.
	CacheLookups        *prometheus.CounterVec // labels: result={hit,miss,expired}
	DatasetsServed      *prometheus.CounterVec // labels: kind
	AcquisitionDuration prometheus.Histogram

	// Location resolution metrics.
	ResolverRequests *prometheus.CounterVec // labels: outcome={success,error}

	// Sink publishing metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
	SinkEnabled      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.BatchesDispatched,
		m.BatchDuration,
		m.RateLimitRetries,
		m.RecordsNormalized,
		m.MalformedRecords,
		m.CacheLookups,
		m.DatasetsServed,
		m.AcquisitionDuration,
		m.ResolverRequests,
		m.RecordsPublished,
		m.PublishErrors,
		m.SinkEnabled,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests
// avoid "already registered" panics on the default registry.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "fetch_requests_total",
			Help:      "Police API window fetches by record kind and outcome.",
		}, []string{"kind", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crime_data",
			Name:      "fetch_duration_seconds",
			Help:      "Police API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		BatchesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "batches_dispatched_total",
			Help:      "Fetch batches dispatched by the scheduler.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crime_data",
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of one concurrent fetch batch.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RateLimitRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "rate_limit_retries_total",
			Help:      "Batch retries triggered by upstream 429 responses.",
		}),
		RecordsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "records_normalized_total",
			Help:      "Raw records successfully normalized, by kind.",
		}, []string{"kind"}),
		MalformedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "malformed_records_total",
			Help:      "Raw records dropped at the normalization boundary, by kind.",
		}, []string{"kind"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "cache_lookups_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		DatasetsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "datasets_served_total",
			Help:      "Datasets returned to callers, by kind.",
		}, []string{"kind"}),
		AcquisitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "crime_data",
			Name:      "acquisition_duration_seconds",
			Help:      "Duration of a complete resolve-fetch-normalize-cache cycle.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		ResolverRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "resolver_requests_total",
			Help:      "Postcode resolution requests by outcome.",
		}, []string{"outcome"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "records_published_total",
			Help:      "Normalized records published to the Kafka sink.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crime_data",
			Name:      "publish_errors_total",
			Help:      "Failed Kafka sink publishes.",
		}),
		SinkEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crime_data",
			Name:      "sink_enabled",
			Help:      "1 when the Kafka record sink is enabled, 0 otherwise.",
		}),
	}
}
