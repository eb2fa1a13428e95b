// Package metrics collects and exposes Prometheus metrics for the
// reference server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the request metrics.
type Collector struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskkeeper_requests_total",
			Help: "Requests served, by method and status code.",
		}, []string{"method", "code"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskkeeper_request_duration_seconds",
			Help:    "Request handling latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(c.requests, c.latency)
	return c
}

// Middleware records every request's method, status code, and
// latency.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		c.requests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		c.latency.Observe(time.Since(start).Seconds())
	})
}

// Handler serves the collected metrics in the Prometheus text
// format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
