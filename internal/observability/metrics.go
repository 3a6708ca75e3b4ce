// Package observability exposes Prometheus metrics for the memory store API.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics for the HTTP API.
type Collector struct {
	RequestDuration *prometheus.HistogramVec
	RequestCount    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates a collector with its own registry, so repeated
// construction in tests does not panic on duplicate registration.
func NewCollector() *Collector {
	c := &Collector{
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "memstore_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memstore_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(c.RequestDuration)
	c.registry.MustRegister(c.RequestCount)

	return c
}

// Handler returns the HTTP handler serving the collected metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
