// Package metrics provides Prometheus metrics for the netshift service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the service registers.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Ingestion
	ingestJobs     *prometheus.CounterVec
	ingestPoints   *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec

	// Store
	storeQueryLatency  prometheus.Histogram
	storeUpsertLatency prometheus.Histogram
	storeMetricPoints  prometheus.Gauge
	storeRankRows      prometheus.Gauge

	// Analytics
	windowComputations prometheus.Counter
	rankComparisons    prometheus.Counter
	agegateJoins       prometheus.Counter

	// Snapshot cache
	snapshotCacheHits   prometheus.Counter
	snapshotCacheMisses prometheus.Counter

	// Ingest queue / workers
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueRejections  prometheus.Counter
	workerCount      prometheus.Gauge

	// Process
	systemMemoryBytes prometheus.Gauge
	systemGoroutines  prometheus.Gauge
}

// Global manager on a custom registry so the default Go collectors stay out.
var globalManager *Manager                    //nolint:gochecknoglobals
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals

func init() { //nolint:gochecknoinits
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a manager and registers all collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "netshift",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method, and status code.",
	}, []string{"endpoint", "method", "status"})

	m.httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"endpoint", "method"})

	m.ingestJobs = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ingest_jobs_total",
		Help:      "Ingestion jobs by kind and outcome.",
	}, []string{"kind", "outcome"})

	m.ingestPoints = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ingest_points_total",
		Help:      "Records upserted by ingestion, per kind.",
	}, []string{"kind"})

	m.ingestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "ingest_duration_ms",
		Help:      "Ingestion job duration in milliseconds.",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"kind"})

	m.storeQueryLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "store_query_latency_ms",
		Help:      "Store read latency in milliseconds.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
	})

	m.storeUpsertLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "store_upsert_latency_ms",
		Help:      "Store write latency in milliseconds.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
	})

	m.storeMetricPoints = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "store_metric_points",
		Help:      "Metric points currently stored.",
	})

	m.storeRankRows = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "store_rank_rows",
		Help:      "Domain ranking rows currently stored.",
	})

	m.windowComputations = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "window_computations_total",
		Help:      "Window statistic computations performed.",
	})

	m.rankComparisons = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rank_comparisons_total",
		Help:      "Rank-change comparisons performed.",
	})

	m.agegateJoins = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "agegate_joins_total",
		Help:      "Age-gate classification joins performed.",
	})

	m.snapshotCacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "snapshot_cache_hits_total",
		Help:      "Rank snapshot cache hits.",
	})

	m.snapshotCacheMisses = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "snapshot_cache_misses_total",
		Help:      "Rank snapshot cache misses.",
	})

	m.queueSize = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ingest_queue_size",
		Help:      "Jobs currently queued for ingestion.",
	})

	m.queueCapacity = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ingest_queue_capacity",
		Help:      "Configured ingest queue capacity.",
	})

	m.queueUtilization = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ingest_queue_utilization",
		Help:      "Queue fill ratio between 0 and 1.",
	})

	m.queueEnqueues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ingest_queue_enqueues_total",
		Help:      "Jobs accepted onto the ingest queue.",
	})

	m.queueDequeues = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ingest_queue_dequeues_total",
		Help:      "Jobs handed to workers.",
	})

	m.queueRejections = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ingest_queue_rejections_total",
		Help:      "Jobs rejected due to backpressure or a closed queue.",
	})

	m.workerCount = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "ingest_workers",
		Help:      "Configured ingestion worker count.",
	})

	m.systemMemoryBytes = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_memory_bytes",
		Help:      "Heap bytes in use.",
	})

	m.systemGoroutines = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "system_goroutines",
		Help:      "Current goroutine count.",
	})

	return m
}

// GetRegistry exposes the registry backing the global manager for promhttp.
func GetRegistry() *prometheus.Registry {
	return globalManager.registry
}

// Package-level recording helpers backed by the global manager.

func RecordHTTPRequest(endpoint, method, status string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

func RecordHTTPRequestDuration(endpoint, method string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method).Observe(ms)
}

func RecordIngestJob(kind string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	globalManager.ingestJobs.WithLabelValues(kind, outcome).Inc()
}

func RecordIngestPoints(kind string, n int) {
	globalManager.ingestPoints.WithLabelValues(kind).Add(float64(n))
}

func ObserveIngestDuration(kind string, ms float64) {
	globalManager.ingestDuration.WithLabelValues(kind).Observe(ms)
}

func ObserveStoreQuery(ms float64)  { globalManager.storeQueryLatency.Observe(ms) }
func ObserveStoreUpsert(ms float64) { globalManager.storeUpsertLatency.Observe(ms) }

func UpdateStoreCounts(metricPoints, rankRows int64) {
	globalManager.storeMetricPoints.Set(float64(metricPoints))
	globalManager.storeRankRows.Set(float64(rankRows))
}

func RecordWindowComputation() { globalManager.windowComputations.Inc() }
func RecordRankComparison()    { globalManager.rankComparisons.Inc() }
func RecordAgeGateJoin()       { globalManager.agegateJoins.Inc() }

func RecordSnapshotCacheHit()  { globalManager.snapshotCacheHits.Inc() }
func RecordSnapshotCacheMiss() { globalManager.snapshotCacheMisses.Inc() }

func UpdateQueueSize(n int)            { globalManager.queueSize.Set(float64(n)) }
func UpdateQueueCapacity(n int)        { globalManager.queueCapacity.Set(float64(n)) }
func UpdateQueueUtilization(r float64) { globalManager.queueUtilization.Set(r) }
func RecordQueueEnqueue()              { globalManager.queueEnqueues.Inc() }
func RecordQueueDequeue()              { globalManager.queueDequeues.Inc() }
func RecordQueueRejection()            { globalManager.queueRejections.Inc() }
func UpdateWorkerCount(n int)          { globalManager.workerCount.Set(float64(n)) }

func UpdateSystemMetrics(heapBytes uint64, goroutines int) {
	globalManager.systemMemoryBytes.Set(float64(heapBytes))
	globalManager.systemGoroutines.Set(float64(goroutines))
}
