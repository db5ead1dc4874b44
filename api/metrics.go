package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names.
const (
	MetricRequestsTotal          = "pos_http_requests_total"
	MetricRequestDurationSeconds = "pos_http_request_duration_seconds"
	MetricSliceDurationSeconds   = "pos_slice_compute_duration_seconds"
	MetricRetailerLoadsTotal     = "pos_retailer_loads_total"
	MetricCacheClearsTotal       = "pos_cache_clears_total"
	MetricRateLimitedTotal       = "pos_rate_limited_total"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sliceDuration   *prometheus.HistogramVec
	retailerLoads   *prometheus.CounterVec
	cacheClears     *prometheus.CounterVec
	rateLimited     prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRequestsTotal,
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRequestDurationSeconds,
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		sliceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricSliceDurationSeconds,
			Help:    "Time spent computing a slice and its analysis.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"granularity"}),
		retailerLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRetailerLoadsTotal,
			Help: "Retailer snapshot loads by result (ok, not_found, error).",
		}, []string{"result"}),
		cacheClears: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricCacheClearsTotal,
			Help: "Document cache clears by trigger (api, scheduler).",
		}, []string{"trigger"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitedTotal,
			Help: "Requests rejected by the rate limiter.",
		}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.sliceDuration,
		m.retailerLoads,
		m.cacheClears,
		m.rateLimited,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency under the matched route
// pattern so path parameters don't explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeSlice(granularity string, d time.Duration) {
	m.sliceDuration.WithLabelValues(granularity).Observe(d.Seconds())
}

func (m *Metrics) retailerLoad(result string) {
	m.retailerLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) cacheCleared(trigger string) {
	m.cacheClears.WithLabelValues(trigger).Inc()
}
