package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the session cache
// and the session scheduler.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	sessionsCreated   *prometheus.CounterVec
	sessionConflicts  prometheus.Counter
	sessionsDeleted   prometheus.Counter
	expansionDuration prometheus.Histogram
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	sessionsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_sessions_created_total",
		Help: "Sessions inserted, by session type",
	}, []string{"type"})

	sessionConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_session_conflicts_total",
		Help: "Session inserts skipped because the slot was taken concurrently",
	})

	sessionsDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_sessions_deleted_total",
		Help: "Sessions removed by range maintenance",
	})

	expansionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_expansion_duration_seconds",
		Help:    "Duration of a single month expansion",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		sessionsCreated, sessionConflicts, sessionsDeleted, expansionDuration, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		sessionsCreated:   sessionsCreated,
		sessionConflicts:  sessionConflicts,
		sessionsDeleted:   sessionsDeleted,
		expansionDuration: expansionDuration,
	}
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordSessionsCreated counts inserted sessions of a type.
func (m *MetricsService) RecordSessionsCreated(sessionType string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsCreated.WithLabelValues(sessionType).Add(float64(n))
}

// RecordSessionConflict counts a benign duplicate insert.
func (m *MetricsService) RecordSessionConflict() {
	if m == nil {
		return
	}
	m.sessionConflicts.Inc()
}

// RecordSessionsDeleted counts sessions removed by maintenance.
func (m *MetricsService) RecordSessionsDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsDeleted.Add(float64(n))
}

// ObserveExpansion records the duration of one month expansion.
func (m *MetricsService) ObserveExpansion(duration time.Duration) {
	if m == nil {
		return
	}
	m.expansionDuration.Observe(duration.Seconds())
}
