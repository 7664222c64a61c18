package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so metrics stay optional in tests.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Service layer metrics
	OperationsTotal  *prometheus.CounterVec
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
	CreateQueueDepth *prometheus.GaugeVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inkwell_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_service_operations_total",
				Help: "Service operations by service, operation and result code",
			},
			[]string{"service", "op", "result"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_service_cache_hits_total",
				Help: "Query cache hits by service and operation",
			},
			[]string{"service", "op"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inkwell_service_cache_misses_total",
				Help: "Query cache misses by service and operation",
			},
			[]string{"service", "op"},
		),
		CreateQueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "inkwell_service_create_queue_depth",
				Help: "Pending queued creations per service",
			},
			[]string{"service"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OperationsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CreateQueueDepth,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest counts one handled HTTP request and observes its
// duration.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOperation counts one service operation outcome.
func (m *Metrics) RecordOperation(service, op, result string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(service, op, result).Inc()
}

// RecordCacheHit counts one cache hit.
func (m *Metrics) RecordCacheHit(service, op string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(service, op).Inc()
}

// RecordCacheMiss counts one cache miss.
func (m *Metrics) RecordCacheMiss(service, op string) {
	if m == nil {
		return
	}
	m.CacheMissesTotal.WithLabelValues(service, op).Inc()
}

// SetQueueDepth reports the pending queued creations for a service.
func (m *Metrics) SetQueueDepth(service string, depth int) {
	if m == nil {
		return
	}
	m.CreateQueueDepth.WithLabelValues(service).Set(float64(depth))
}
