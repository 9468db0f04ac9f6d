package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics holds the Prometheus instruments for the HTTP server.
type serverMetrics struct {
	searchRequests *prometheus.CounterVec
	searchDuration prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// newServerMetrics registers the server's instruments on reg. Each Server
// gets its own registry so tests stay hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)
	return &serverMetrics{
		searchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luatgt",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Search requests by outcome.",
		}, []string{"outcome"}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "luatgt",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "Search request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luatgt",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, handler and status code.",
		}, []string{"method", "handler", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "luatgt",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
	}
}
