package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegistry holds all Prometheus metrics for the health sync service
type MetricsRegistry struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Sync Metrics
	SyncCyclesTotal       *prometheus.CounterVec
	SyncCycleDuration     *prometheus.HistogramVec
	RecordsInsertedTotal  *prometheus.CounterVec
	RecordsDedupedTotal   *prometheus.CounterVec
	BatchErrorsTotal      *prometheus.CounterVec
	ProviderFetchFailures *prometheus.CounterVec
	StaleLogsSweptTotal   prometheus.Counter
	EventPublishFailures  *prometheus.CounterVec
}

// NewMetricsRegistry registers every metric with reg and returns the registry.
// Pass prometheus.DefaultRegisterer in production and prometheus.NewRegistry() in tests.
func NewMetricsRegistry(reg prometheus.Registerer) *MetricsRegistry {
	factory := promauto.With(reg)

	return &MetricsRegistry{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthsync_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "healthsync_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "healthsync_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"endpoint"},
		),

		// Sync Metrics
		SyncCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthsync_sync_cycles_total",
				Help: "Sync cycles by provider, sync type and terminal status",
			},
			[]string{"provider", "sync_type", "status"},
		),
		SyncCycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "healthsync_sync_cycle_duration_seconds",
				Help:    "Sync cycle execution time in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"provider", "sync_type"},
		),
		RecordsInsertedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthsync_records_inserted_total",
				Help: "Activity records newly persisted",
			},
			[]string{"provider"},
		),
		RecordsDedupedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthsync_records_deduplicated_total",
				Help: "Activity records skipped because their external id already existed",
			},
			[]string{"provider"},
		),
		BatchErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthsync_batch_errors_total",
				Help: "Error entries reported by record batch inserts",
			},
			[]string{"provider"},
		),
		ProviderFetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthsync_provider_fetch_failures_total",
				Help: "Per-type sample fetches that failed and were absorbed",
			},
			[]string{"provider", "activity_type"},
		),
		StaleLogsSweptTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "healthsync_stale_logs_swept_total",
				Help: "In-progress sync logs retired by the stale sweep",
			},
		),
		EventPublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "healthsync_event_publish_failures_total",
				Help: "Sync events that could not be published",
			},
			[]string{"sink"},
		),
	}
}

// ObserveSyncCycle records the outcome of one finished cycle. Safe on a nil registry.
func (m *MetricsRegistry) ObserveSyncCycle(provider, syncType, status string, inserted, deduplicated, batchErrors int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncCyclesTotal.WithLabelValues(provider, syncType, status).Inc()
	m.SyncCycleDuration.WithLabelValues(provider, syncType).Observe(elapsed.Seconds())
	m.RecordsInsertedTotal.WithLabelValues(provider).Add(float64(inserted))
	m.RecordsDedupedTotal.WithLabelValues(provider).Add(float64(deduplicated))
	m.BatchErrorsTotal.WithLabelValues(provider).Add(float64(batchErrors))
}

// ObserveFetchFailure counts one absorbed per-type fetch failure. Safe on a nil registry.
func (m *MetricsRegistry) ObserveFetchFailure(provider, activityType string) {
	if m == nil {
		return
	}
	m.ProviderFetchFailures.WithLabelValues(provider, activityType).Inc()
}
