// Package metrics provides Prometheus metrics for the gradelens service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis and import outcomes used as label values.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Analytics pipeline
	analyses           *prometheus.CounterVec
	analysisLatency    prometheus.Histogram
	analyzedRows       prometheus.Counter
	lastFlaggedRecords prometheus.Gauge
	weightRejections   *prometheus.CounterVec

	// Ingest
	imports      *prometheus.CounterVec
	importedRows prometheus.Counter
	comments     prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gradelens",
		subsystem:        "analytics",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(m.counterOpts("analyses_total", "Analysis runs by outcome"), []string{"outcome"})
	m.analysisLatency = auto.NewHistogram(m.histogramOpts("analysis_latency_milliseconds",
		"Latency of a full normalize, score, trend and flag run", m.histogramBuckets))
	m.analyzedRows = auto.NewCounter(m.counterOpts("analyzed_rows_total", "Records passed through the pipeline"))
	m.lastFlaggedRecords = auto.NewGauge(m.gaugeOpts("last_flagged_records", "Flagged records in the latest analysis"))
	m.weightRejections = auto.NewCounterVec(m.counterOpts("weight_rejections_total",
		"Weight maps rejected by the normalizer"), []string{"reason"})

	m.imports = auto.NewCounterVec(m.counterOpts("imports_total", "File imports by outcome"), []string{"outcome"})
	m.importedRows = auto.NewCounter(m.counterOpts("imported_rows_total", "Records persisted by imports"))
	m.comments = auto.NewCounter(m.counterOpts("comments_total", "Comments appended"))

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds",
		"Record store operation latency", m.histogramBuckets), []string{"op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total", "Record store failures"), []string{"op"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration", m.histogramBuckets), []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// RecordAnalysis records one pipeline run.
func (m *Manager) RecordAnalysis(outcome string, latencyMs float64, rows, flagged int) {
	m.analyses.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.analysisLatency.Observe(latencyMs)
	m.analyzedRows.Add(float64(rows))
	m.lastFlaggedRecords.Set(float64(flagged))
}

// RecordWeightRejection counts a weight map refused by the normalizer.
func (m *Manager) RecordWeightRejection(reason string) {
	m.weightRejections.WithLabelValues(reason).Inc()
}

// RecordImport records one import attempt and the rows it persisted.
func (m *Manager) RecordImport(outcome string, rows int) {
	m.imports.WithLabelValues(outcome).Inc()
	if rows > 0 {
		m.importedRows.Add(float64(rows))
	}
}

// RecordComment counts an appended comment.
func (m *Manager) RecordComment() { m.comments.Inc() }

// RecordStoreLatency records a store operation; failed operations are counted separately.
func (m *Manager) RecordStoreLatency(op string, latencyMs float64, err error) {
	m.storeLatency.WithLabelValues(op).Observe(latencyMs)
	if err != nil {
		m.storeErrors.WithLabelValues(op).Inc()
	}
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystem sets the runtime gauges.
func (m *Manager) UpdateSystem(heapBytes uint64, goroutines int, gcPauseMs float64) {
	m.systemMemoryUsage.Set(float64(heapBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if gcPauseMs > 0 {
		m.systemGCPauseTime.Observe(gcPauseMs)
	}
}

// Package-level helpers delegate to the global manager.

func RecordAnalysis(outcome string, latencyMs float64, rows, flagged int) {
	globalManager.RecordAnalysis(outcome, latencyMs, rows, flagged)
}

func RecordWeightRejection(reason string) { globalManager.RecordWeightRejection(reason) }

func RecordImport(outcome string, rows int) { globalManager.RecordImport(outcome, rows) }

func RecordComment() { globalManager.RecordComment() }

func RecordStoreLatency(op string, latencyMs float64, err error) {
	globalManager.RecordStoreLatency(op, latencyMs, err)
}

func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

func UpdateSystem(heapBytes uint64, goroutines int, gcPauseMs float64) {
	globalManager.UpdateSystem(heapBytes, goroutines, gcPauseMs)
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
