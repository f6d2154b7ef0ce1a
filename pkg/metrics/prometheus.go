// Package metrics provides Prometheus metrics for the teampulse service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Scoring
	recomputes          *prometheus.CounterVec
	recomputesCoalesced prometheus.Counter
	aggregationLatency  prometheus.Histogram
	membersScored       prometheus.Counter

	// Documents
	ingested         *prometheus.CounterVec
	invalidDocuments *prometheus.CounterVec

	// Leaderboard
	leaderboardScopes       prometheus.Gauge
	leaderboardQueryLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Streams
	streamSubscribers prometheus.Gauge
	streamDropped     prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "teampulse",
		subsystem:        "performance",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.recomputes = m.counterVec("recomputes_total", "Scope recomputes completed, by reason", "reason")
	m.recomputesCoalesced = m.counter("recomputes_coalesced_total", "Recompute requests folded into an already pending job")
	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds", "Time spent loading and aggregating one scope")
	m.membersScored = m.counter("members_scored_total", "Member performance rows produced")

	m.ingested = m.counterVec("documents_ingested_total", "Documents written through the API, by kind", "kind")
	m.invalidDocuments = m.counterVec("documents_invalid_total", "Stored documents skipped on read, by collection", "collection")

	m.leaderboardScopes = m.gauge("leaderboard_scopes", "Scopes with a published leaderboard")
	m.leaderboardQueryLatency = m.histogram("leaderboard_query_latency_milliseconds", "Leaderboard query latency")

	m.queueSize = m.gauge("queue_size", "Recompute jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Recompute queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected because the queue was full or closed")

	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one job")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that failed")

	m.streamSubscribers = m.gauge("stream_subscribers", "Open snapshot subscriptions")
	m.streamDropped = m.counter("stream_dropped_total", "Snapshots replaced before a slow subscriber read them")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordRecompute counts a finished recompute.
func RecordRecompute(reason string) {
	globalManager.recomputes.WithLabelValues(reason).Inc()
}

// RecordRecomputeCoalesced counts a request that found its scope already pending.
func RecordRecomputeCoalesced() {
	globalManager.recomputesCoalesced.Inc()
}

// RecordAggregationLatency records load+aggregate latency in milliseconds.
func RecordAggregationLatency(latencyMs float64) {
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordMembersScored adds n produced rows.
func RecordMembersScored(n int) {
	globalManager.membersScored.Add(float64(n))
}

// RecordIngest counts an accepted document of kind.
func RecordIngest(kind string) {
	globalManager.ingested.WithLabelValues(kind).Inc()
}

// RecordInvalidDocument counts a stored document skipped on read.
func RecordInvalidDocument(collection string) {
	globalManager.invalidDocuments.WithLabelValues(collection).Inc()
}

// UpdateLeaderboardScopes sets the number of published boards.
func UpdateLeaderboardScopes(count int) {
	globalManager.leaderboardScopes.Set(float64(count))
}

// RecordLeaderboardQueryLatency records leaderboard query latency in milliseconds.
func RecordLeaderboardQueryLatency(latencyMs float64) {
	globalManager.leaderboardQueryLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
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

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateStreamSubscribers sets the number of open subscriptions.
func UpdateStreamSubscribers(count int) {
	globalManager.streamSubscribers.Set(float64(count))
}

// RecordStreamDropped counts a snapshot overwritten in a subscriber buffer.
func RecordStreamDropped() {
	globalManager.streamDropped.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
