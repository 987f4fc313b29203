package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation and lifecycle
// counters for the file engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	filesCreated    prometheus.Counter
	filesRedListed  prometheus.Counter
	extensions      *prometheus.CounterVec
	sweepDuration   prometheus.Histogram
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

	filesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "files_created_total",
		Help: "Total case files registered",
	})

	filesRedListed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "files_redlisted_total",
		Help: "Total files red-listed by the sweeper",
	})

	extensions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "extension_resolutions_total",
		Help: "Extension requests resolved, by outcome",
	}, []string{"status"})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redlist_sweep_duration_seconds",
		Help:    "Duration of red-list sweep passes",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, filesCreated, filesRedListed, extensions, sweepDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		filesCreated:    filesCreated,
		filesRedListed:  filesRedListed,
		extensions:      extensions,
		sweepDuration:   sweepDuration,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// IncFilesCreated bumps the created-files counter.
func (m *MetricsService) IncFilesCreated() {
	if m == nil {
		return
	}
	m.filesCreated.Inc()
}

// IncFilesRedListed bumps the red-listed counter.
func (m *MetricsService) IncFilesRedListed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.filesRedListed.Add(float64(n))
}

// IncExtensionResolved records an extension outcome.
func (m *MetricsService) IncExtensionResolved(status string) {
	if m == nil {
		return
	}
	m.extensions.WithLabelValues(status).Inc()
}

// ObserveSweep records the duration of one sweep pass.
func (m *MetricsService) ObserveSweep(duration time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(duration.Seconds())
}
