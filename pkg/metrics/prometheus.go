// Package metrics provides Prometheus metrics for the dedidash service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the dedidash service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	ingestRuns           *prometheus.CounterVec
	ingestRecords        prometheus.Counter
	ingestPlayerFailures prometheus.Counter
	ingestRunDuration    prometheus.Histogram
	ingestLastSuccess    prometheus.Gauge

	// Dedimania fetches
	fetchRequests *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec

	// Store
	storeQueryLatency *prometheus.HistogramVec
	storeRecords      prometheus.Gauge
	storePlayers      prometheus.Gauge

	// Reports
	reportComputations *prometheus.CounterVec
	reportLatency      *prometheus.HistogramVec
	reportShared       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerActiveCount  prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "dedidash",
		subsystem:        "",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.ingestRuns = auto.NewCounterVec(m.counterOpts("ingest_runs_total", "Ingestion runs by outcome"), []string{"status"})
	m.ingestRecords = auto.NewCounter(m.counterOpts("ingest_records_total", "Record rows written by ingestion runs"))
	m.ingestPlayerFailures = auto.NewCounter(m.counterOpts("ingest_player_failures_total", "Players whose records page could not be fetched or parsed"))
	m.ingestRunDuration = auto.NewHistogram(m.histogramOpts("ingest_run_duration_seconds", "Wall time of a full ingestion run",
		[]float64{1, 5, 15, 30, 60, 120, 300, 600}))
	m.ingestLastSuccess = auto.NewGauge(m.gaugeOpts("ingest_last_success_unix", "Unix time of the last committed ingestion run"))

	m.fetchRequests = auto.NewCounterVec(m.counterOpts("fetch_requests_total", "Requests sent to Dedimania by kind and outcome"), []string{"kind", "status"})
	m.fetchLatency = auto.NewHistogramVec(m.histogramOpts("fetch_latency_milliseconds", "Dedimania request latency in milliseconds", m.histogramBuckets), []string{"kind"})

	m.storeQueryLatency = auto.NewHistogramVec(m.histogramOpts("store_query_latency_milliseconds", "Store operation latency in milliseconds", m.histogramBuckets), []string{"op"})
	m.storeRecords = auto.NewGauge(m.gaugeOpts("store_records", "Current record rows in the store"))
	m.storePlayers = auto.NewGauge(m.gaugeOpts("store_players", "Distinct players in the store"))

	m.reportComputations = auto.NewCounterVec(m.counterOpts("report_computations_total", "Report computations by report kind"), []string{"report"})
	m.reportLatency = auto.NewHistogramVec(m.histogramOpts("report_latency_milliseconds", "Report computation latency in milliseconds", m.histogramBuckets), []string{"report"})
	m.reportShared = auto.NewCounterVec(m.counterOpts("report_shared_total", "Requests served from an in-flight identical computation"), []string{"report"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Fetch jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum fetch queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Fetch jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Fetch jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Fetch jobs rejected by the queue"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Fetch workers currently running"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Time a worker spends on one fetch job", m.histogramBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Fetch jobs that ended in an error"))

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Total number of errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Total number of errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", m.histogramBuckets),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Ingestion.

// RecordIngestRun counts a finished ingestion run; status is "ok", "partial" or "failed".
func RecordIngestRun(status string, seconds float64) {
	globalManager.ingestRuns.WithLabelValues(status).Inc()
	globalManager.ingestRunDuration.Observe(seconds)
}

// RecordIngestedRecords adds n written rows.
func RecordIngestedRecords(n int) {
	globalManager.ingestRecords.Add(float64(n))
}

// RecordIngestPlayerFailure counts one player that could not be fetched.
func RecordIngestPlayerFailure() {
	globalManager.ingestPlayerFailures.Inc()
}

// SetIngestLastSuccess stores the commit time of the last good run.
func SetIngestLastSuccess(unix int64) {
	globalManager.ingestLastSuccess.Set(float64(unix))
}

// Fetching.

// RecordFetch records one Dedimania request.
func RecordFetch(kind, status string, latencyMs float64) {
	globalManager.fetchRequests.WithLabelValues(kind, status).Inc()
	globalManager.fetchLatency.WithLabelValues(kind).Observe(latencyMs)
}

// Store.

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateStoreSize sets the record and player gauges.
func UpdateStoreSize(records, players int) {
	globalManager.storeRecords.Set(float64(records))
	globalManager.storePlayers.Set(float64(players))
}

// Reports.

// RecordReport records one report computation.
func RecordReport(report string, latencyMs float64) {
	globalManager.reportComputations.WithLabelValues(report).Inc()
	globalManager.reportLatency.WithLabelValues(report).Observe(latencyMs)
}

// RecordReportShared counts a request that reused an in-flight computation.
func RecordReportShared(report string) {
	globalManager.reportShared.WithLabelValues(report).Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue and workers.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
