// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion and ranking
	scoresIngested     *prometheus.CounterVec
	recordsTotal       prometheus.Gauge
	validationErrors   prometheus.Gauge
	recomputeTotal     prometheus.Counter
	recomputeDuration  prometheus.Histogram
	leaderboardEntries *prometheus.GaugeVec
	rankingQueries     *prometheus.CounterVec

	// Persistence
	fileOperations *prometheus.CounterVec

	// Sync intents
	intentsTotal  *prometheus.CounterVec
	intentLatency prometheus.Histogram
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge
	workerCount   prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoreboard",
		subsystem:        "scores",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
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

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scoresIngested = auto.NewCounterVec(m.counterOpts("ingested_total",
		"Score submissions ingested, by outcome (valid or validation error kind)"), []string{"outcome"})
	m.recordsTotal = auto.NewGauge(m.gaugeOpts("records",
		"Score records currently held by the store"))
	m.validationErrors = auto.NewGauge(m.gaugeOpts("validation_errors",
		"Score records currently tagged with a validation error"))
	m.recomputeTotal = auto.NewCounter(m.counterOpts("recompute_total",
		"Scoreboard recomputations"))
	m.recomputeDuration = auto.NewHistogram(m.histogramOpts("recompute_duration_milliseconds",
		"Duration of a full revalidation and ranking pass in milliseconds"))
	m.leaderboardEntries = auto.NewGaugeVec(m.gaugeOpts("leaderboard_entries",
		"Teams on each stage leaderboard"), []string{"stage"})
	m.rankingQueries = auto.NewCounterVec(m.counterOpts("ranking_queries_total",
		"Ranking projections served, by whether a round filter was applied"), []string{"filtered"})

	m.fileOperations = auto.NewCounterVec(m.counterOpts("file_operations_total",
		"Score file loads and saves, by operation and status"), []string{"operation", "status"})

	m.intentsTotal = auto.NewCounterVec(m.counterOpts("intents_total",
		"Synchronization intents emitted, by operation and status"), []string{"operation", "status"})
	m.intentLatency = auto.NewHistogram(m.histogramOpts("intent_latency_milliseconds",
		"Time from intent submission to sink acknowledgement in milliseconds"))
	m.queueSize = auto.NewGauge(m.gaugeOpts("intent_queue_size",
		"Intents waiting for a worker"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("intent_queue_capacity",
		"Maximum number of pending intents"))
	m.workerCount = auto.NewGauge(m.gaugeOpts("intent_worker_count",
		"Workers delivering intents"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status code"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total",
		"Errors by component and type"), []string{"component", "error_type"})
}

// RecordScoreIngested counts one ingested submission; outcome is "valid" or a
// validation error kind.
func RecordScoreIngested(outcome string) {
	globalManager.scoresIngested.WithLabelValues(outcome).Inc()
}

// UpdateRecordCounts sets the record and validation error gauges.
func UpdateRecordCounts(records, validationErrors int) {
	globalManager.recordsTotal.Set(float64(records))
	globalManager.validationErrors.Set(float64(validationErrors))
}

// RecordRecompute records one recomputation and its duration.
func RecordRecompute(durationMs float64) {
	globalManager.recomputeTotal.Inc()
	globalManager.recomputeDuration.Observe(durationMs)
}

// UpdateLeaderboardEntries sets the number of teams ranked on a stage.
func UpdateLeaderboardEntries(stageID string, entries int) {
	globalManager.leaderboardEntries.WithLabelValues(stageID).Set(float64(entries))
}

// ResetLeaderboardEntries drops every per-stage series, e.g. after stages
// were removed from the registry.
func ResetLeaderboardEntries() {
	globalManager.leaderboardEntries.Reset()
}

// RecordRankingQuery counts one scoreboard projection.
func RecordRankingQuery(filtered bool) {
	label := "false"
	if filtered {
		label = "true"
	}
	globalManager.rankingQueries.WithLabelValues(label).Inc()
}

// RecordFileOperation counts a score file load or save.
func RecordFileOperation(operation, status string) {
	globalManager.fileOperations.WithLabelValues(operation, status).Inc()
}

// RecordIntent counts one synchronization intent and its latency.
func RecordIntent(operation, status string, latencyMs float64) {
	globalManager.intentsTotal.WithLabelValues(operation, status).Inc()
	globalManager.intentLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the number of pending intents.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the pending intent capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the number of intent workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry the global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
