package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "council_portal"

// MetricsService owns the Prometheus registry for the portal. Every method is
// safe on a nil receiver so callers can run without metrics.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    *prometheus.HistogramVec
	dbQueryDuration *prometheus.HistogramVec
	mediaUploads    *prometheus.CounterVec
	mediaOrphans    prometheus.Counter
	sweepOutcomes   *prometheus.CounterVec
	contentChanges  *prometheus.CounterVec
	liveSubscribers prometheus.Gauge

	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	requests     atomic.Uint64
	requestNanos atomic.Uint64
	queries      atomic.Uint64
	queryNanos   atomic.Uint64
	live         atomic.Int64
}

// NewMetricsService registers the portal collectors plus the Go runtime and
// process collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "page_cache_lookups_total",
			Help:      "Page cache lookups by result.",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "page_cache_seconds",
			Help:      "Page cache latency by operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "db_query_duration_seconds",
			Help:      "Repository query latency by query label.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		mediaUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "media_uploads_total",
			Help:      "Media uploads by kind and outcome.",
		}, []string{"kind", "outcome"}),
		mediaOrphans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "media_orphans_total",
			Help:      "Stored objects left behind by a failed delete.",
		}),
		sweepOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "media_sweep_objects_total",
			Help:      "Orphaned objects handled by the sweep, by outcome.",
		}, []string{"outcome"}),
		contentChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "content_changes_total",
			Help:      "Published content changes by table and action.",
		}, []string{"table", "action"}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "live_subscribers",
			Help:      "Open websocket change subscriptions.",
		}),
	}

	m.registry.MustRegister(
		m.requestDuration, m.cacheLookups, m.cacheLatency, m.dbQueryDuration,
		m.mediaUploads, m.mediaOrphans, m.sweepOutcomes, m.contentChanges, m.liveSubscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a page cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
}

// ObserveCacheWrite records a page cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

// ObserveDBQuery records repository query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.queries.Add(1)
	m.queryNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordUpload counts stored media by kind and outcome.
func (m *MetricsService) RecordUpload(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "rejected"
	}
	m.mediaUploads.WithLabelValues(kind, outcome).Inc()
}

// RecordOrphan counts file deletes that failed after their row was removed.
func (m *MetricsService) RecordOrphan() {
	if m == nil {
		return
	}
	m.mediaOrphans.Inc()
}

// RecordSweep counts the outcome of one sweep pass.
func (m *MetricsService) RecordSweep(resolved, failed int) {
	if m == nil {
		return
	}
	m.sweepOutcomes.WithLabelValues("resolved").Add(float64(resolved))
	m.sweepOutcomes.WithLabelValues("failed").Add(float64(failed))
}

// RecordChange counts published content changes per table.
func (m *MetricsService) RecordChange(table, action string) {
	if m == nil {
		return
	}
	m.contentChanges.WithLabelValues(table, action).Inc()
}

// LiveSubscribers tracks open websocket subscriptions.
func (m *MetricsService) LiveSubscribers(delta int) {
	if m == nil {
		return
	}
	m.liveSubscribers.Add(float64(delta))
	m.live.Add(int64(delta))
}

// Snapshot returns aggregated request and cache figures for the health endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	snapshot := MetricsSnapshot{
		RequestsTotal:            m.requests.Load(),
		AverageRequestDurationMs: averageMillis(m.requestNanos.Load(), m.requests.Load()),
		AverageQueryDurationMs:   averageMillis(m.queryNanos.Load(), m.queries.Load()),
		LiveSubscribers:          m.live.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(total)
	}
	return snapshot
}

// MetricsSnapshot is a compact view of process metrics.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"avg_request_duration_ms"`
	AverageQueryDurationMs   float64   `json:"avg_query_duration_ms"`
	LiveSubscribers          int64     `json:"live_subscribers"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

func averageMillis(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}
