// Package metrics exposes the Prometheus collectors shared by the portal processes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SlotComputations *prometheus.CounterVec
	SlotsReturned    prometheus.Histogram
	BookingsTotal    *prometheus.CounterVec
	BackendDuration  *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
}

// NewCollector builds collectors on a private registry so tests can create as many as
// they need without duplicate registration panics.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		SlotComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "computations_total",
			Help:      "Slot computations by outcome (open, full, closed).",
		}, []string{"outcome"}),
		SlotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "slots_returned",
			Help:      "Number of bookable start times returned per computation.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 24, 32, 48},
		}),
		BookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Booking submissions by kind (create, reschedule) and result.",
		}, []string{"kind", "result"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Latency of calls to the business backend API.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"operation", "status"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by kind and result (hit, miss, error).",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(
		c.RequestsTotal,
		c.RequestDuration,
		c.SlotComputations,
		c.SlotsReturned,
		c.BookingsTotal,
		c.BackendDuration,
		c.CacheLookups,
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests that need to gather values.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveBackend records one backend call. A nil collector is a no-op so packages can
// run without metrics wired.
func (c *Collector) ObserveBackend(operation string, status int, started time.Time) {
	if c == nil {
		return
	}
	c.BackendDuration.WithLabelValues(operation, strconv.Itoa(status)).Observe(time.Since(started).Seconds())
}

func (c *Collector) ObserveSlots(outcome string, count int) {
	if c == nil {
		return
	}
	c.SlotComputations.WithLabelValues(outcome).Inc()
	c.SlotsReturned.Observe(float64(count))
}

func (c *Collector) ObserveBooking(kind, result string) {
	if c == nil {
		return
	}
	c.BookingsTotal.WithLabelValues(kind, result).Inc()
}

func (c *Collector) ObserveCache(kind, result string) {
	if c == nil {
		return
	}
	c.CacheLookups.WithLabelValues(kind, result).Inc()
}

// Middleware records request counts and latency under a fixed route label.
func (c *Collector) Middleware(route string, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		c.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
