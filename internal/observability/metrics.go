package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the bulk processing flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal       *prometheus.CounterVec
	httpRequestDuration     *prometheus.HistogramVec
	hospitalsCreatedTotal   prometheus.Counter
	hospitalsFailedTotal    prometheus.Counter
	batchActivationsTotal   *prometheus.CounterVec
	directoryCallDuration   *prometheus.HistogramVec
	batchesInFlight         prometheus.Gauge
	batchProcessingDuration prometheus.Histogram
	batchesSweptTotal       prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hospital_bulk",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hospital_bulk",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		hospitalsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hospital_bulk",
				Name:      "hospitals_created_total",
				Help:      "Total number of hospitals created in the directory service.",
			},
		),
		hospitalsFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hospital_bulk",
				Name:      "hospitals_failed_total",
				Help:      "Total number of hospital creations that ended in a failed result.",
			},
		),
		batchActivationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hospital_bulk",
				Name:      "batch_activations_total",
				Help:      "Total number of batch activation decisions grouped by outcome.",
			},
			[]string{"outcome"},
		),
		directoryCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hospital_bulk",
				Name:      "directory_call_duration_seconds",
				Help:      "Directory service call duration in seconds grouped by operation.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"operation"},
		),
		batchesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hospital_bulk",
				Name:      "batches_inflight",
				Help:      "Current number of batches being processed.",
			},
		),
		batchProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "hospital_bulk",
				Name:      "batch_processing_duration_seconds",
				Help:      "End-to-end batch processing duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		batchesSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "hospital_bulk",
				Name:      "batches_swept_total",
				Help:      "Total number of expired batches removed by the sweeper.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.hospitalsCreatedTotal,
		m.hospitalsFailedTotal,
		m.batchActivationsTotal,
		m.directoryCallDuration,
		m.batchesInFlight,
		m.batchProcessingDuration,
		m.batchesSweptTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncHospitalCreated() {
	if m == nil {
		return
	}
	m.hospitalsCreatedTotal.Inc()
}

func (m *Metrics) IncHospitalFailed() {
	if m == nil {
		return
	}
	m.hospitalsFailedTotal.Inc()
}

func (m *Metrics) IncBatchActivation(activated bool) {
	if m == nil {
		return
	}
	outcome := "activated"
	if !activated {
		outcome = "not_activated"
	}
	m.batchActivationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDirectoryCallDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.directoryCallDuration.WithLabelValues(normalizeOperation(operation)).Observe(seconds)
}

func (m *Metrics) IncBatchInFlight() {
	if m == nil {
		return
	}
	m.batchesInFlight.Inc()
}

func (m *Metrics) DecBatchInFlight() {
	if m == nil {
		return
	}
	m.batchesInFlight.Dec()
}

func (m *Metrics) ObserveBatchProcessingDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.batchProcessingDuration.Observe(seconds)
}

func (m *Metrics) AddBatchesSwept(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.batchesSweptTotal.Add(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeOperation(operation string) string {
	normalized := strings.ToLower(strings.TrimSpace(operation))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
