package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	// TurnsRouted counts routed turns by action kind.
	TurnsRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fernando_turns_routed_total",
		Help: "Routed inbound turns by resulting action.",
	}, []string{"action"})

	// PipelineOutcomes counts CV processing outcomes.
	PipelineOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fernando_pipeline_outcomes_total",
		Help: "Per-file CV pipeline outcomes.",
	}, []string{"outcome"})

	// StateStoreFailures counts degraded state-store operations. These are
	// never surfaced to users; the router falls back to stateless behavior.
	StateStoreFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fernando_state_store_failures_total",
		Help: "State store operations that failed and were ignored.",
	}, []string{"op"})

	// HTTPRequests counts requests by route, method and status class.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fernando_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fernando_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// InitMetrics registers all collectors once per process.
func InitMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(TurnsRouted, PipelineOutcomes, StateStoreFailures, HTTPRequests, HTTPDuration)
	})
}
