package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Note write outcomes.
const (
	WriteCreated    = "created"
	WriteUpdated    = "updated"
	WriteSuperseded = "superseded"
	WriteFailed     = "failed"
)

// Auto-save events.
const (
	AutoSaveScheduled = "scheduled"
	AutoSaveCancelled = "cancelled"
	AutoSaveFlushed   = "flushed"
	AutoSaveDropped   = "dropped"
)

// MetricsService encapsulates Prometheus instrumentation. A nil receiver is a no-op.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	noteWrites      *prometheus.CounterVec
	autoSave        *prometheus.CounterVec
	deviceCache     *prometheus.CounterVec
	degradedReads   prometheus.Counter
	storeDuration   *prometheus.HistogramVec
	cacheOps        *prometheus.CounterVec
	cacheWrites     prometheus.Histogram
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

	noteWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "note_writes_total",
		Help: "Note saves by outcome",
	}, []string{"outcome"})

	autoSave := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "note_autosave_events_total",
		Help: "Debounced auto-save lifecycle events",
	}, []string{"event"})

	deviceCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "device_cache_operations_total",
		Help: "Device cache operations by result",
	}, []string{"operation", "result"})

	degradedReads := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "status_degraded_reads_total",
		Help: "Status resolutions served without one of their sources",
	})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "note_store_duration_seconds",
		Help:    "Duration of note store calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	cacheOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "class_feed_cache_operations_total",
		Help: "Class feed cache lookups by result",
	}, []string{"result"})

	cacheWrites := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "class_feed_cache_write_duration_seconds",
		Help:    "Duration of class feed cache writes",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, noteWrites, autoSave, deviceCache, degradedReads, storeDuration, cacheOps, cacheWrites, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		noteWrites:      noteWrites,
		autoSave:        autoSave,
		deviceCache:     deviceCache,
		degradedReads:   degradedReads,
		storeDuration:   storeDuration,
		cacheOps:        cacheOps,
		cacheWrites:     cacheWrites,
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

// RecordNoteWrite counts a note save outcome.
func (m *MetricsService) RecordNoteWrite(outcome string) {
	if m == nil {
		return
	}
	m.noteWrites.WithLabelValues(outcome).Inc()
}

// RecordAutoSave counts an auto-save event.
func (m *MetricsService) RecordAutoSave(event string) {
	if m == nil {
		return
	}
	m.autoSave.WithLabelValues(event).Inc()
}

// RecordDeviceCache counts a device cache call.
func (m *MetricsService) RecordDeviceCache(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.deviceCache.WithLabelValues(operation, result).Inc()
}

// RecordDegradedRead counts a status resolution that lost a source.
func (m *MetricsService) RecordDegradedRead() {
	if m == nil {
		return
	}
	m.degradedReads.Inc()
}

// ObserveStore records note store timing.
func (m *MetricsService) ObserveStore(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheOperation counts a class feed cache lookup.
func (m *MetricsService) RecordCacheOperation(result string) {
	if m == nil {
		return
	}
	m.cacheOps.WithLabelValues(result).Inc()
}

// ObserveCacheWrite records class feed cache write timing.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}
