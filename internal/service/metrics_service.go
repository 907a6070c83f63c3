package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcome labels.
const (
	FetchOutcomeSaved          = "saved"
	FetchOutcomeHTTPError      = "http_error"
	FetchOutcomeTransportError = "transport_error"
	FetchOutcomeDecodeError    = "decode_error"
	FetchOutcomeWriteError     = "write_error"
)

// MetricsSnapshot aggregates counters for status endpoints and CLI summaries.
type MetricsSnapshot struct {
	RequestsTotal          uint64    `json:"requests_total"`
	FetchesTotal           uint64    `json:"fetches_total"`
	TilesSaved             uint64    `json:"tiles_saved"`
	BytesSaved             uint64    `json:"bytes_saved"`
	AverageFetchDurationMs float64   `json:"average_fetch_duration_ms"`
	Goroutines             int       `json:"goroutines"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for the API and the fetch loop.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	fetchTotal      *prometheus.CounterVec
	fetchDuration   prometheus.Observer
	savedBytes      prometheus.Counter
	runsInFlight    prometheus.Gauge

	requestCount       uint64
	fetchCount         uint64
	fetchDurationTotal uint64
	savedCount         uint64
	savedBytesTotal    uint64
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

	fetchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wms_fetch_total",
		Help: "WMS GetMap requests by outcome",
	}, []string{"outcome"})

	fetchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wms_fetch_duration_seconds",
		Help:    "Duration of a fetch-decode-save of one tile",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	savedBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wms_tiles_saved_bytes_total",
		Help: "Bytes received for tiles that were saved",
	})

	runsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wms_runs_in_flight",
		Help: "Download runs currently executing",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, fetchTotal, fetchDuration, savedBytes, runsInFlight, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		fetchTotal:      fetchTotal,
		fetchDuration:   fetchDuration,
		savedBytes:      savedBytes,
		runsInFlight:    runsInFlight,
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

// Registry exposes the underlying registry.
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
	atomic.AddUint64(&m.requestCount, 1)
}

// ObserveFetch records one tile outcome. bytes is only counted for saved tiles.
func (m *MetricsService) ObserveFetch(outcome string, duration time.Duration, bytes int) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.fetchCount, 1)
	atomic.AddUint64(&m.fetchDurationTotal, uint64(duration.Nanoseconds()))
	if outcome == FetchOutcomeSaved {
		atomic.AddUint64(&m.savedCount, 1)
		if bytes > 0 {
			m.savedBytes.Add(float64(bytes))
			atomic.AddUint64(&m.savedBytesTotal, uint64(bytes))
		}
	}
}

// RunStarted increments the in-flight gauge.
func (m *MetricsService) RunStarted() {
	if m == nil {
		return
	}
	m.runsInFlight.Inc()
}

// RunFinished decrements the in-flight gauge.
func (m *MetricsService) RunFinished() {
	if m == nil {
		return
	}
	m.runsInFlight.Dec()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	fetches := atomic.LoadUint64(&m.fetchCount)
	fetchDuration := atomic.LoadUint64(&m.fetchDurationTotal)

	var avgFetchMs float64
	if fetches > 0 {
		avgFetchMs = float64(fetchDuration) / float64(fetches) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:          atomic.LoadUint64(&m.requestCount),
		FetchesTotal:           fetches,
		TilesSaved:             atomic.LoadUint64(&m.savedCount),
		BytesSaved:             atomic.LoadUint64(&m.savedBytesTotal),
		AverageFetchDurationMs: avgFetchMs,
		Goroutines:             runtime.NumGoroutine(),
		GeneratedAt:            time.Now().UTC(),
	}
}
