package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder keeps its collectors in a private registry so tests and
// multiple servers in one process do not collide on the global one.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
}

// NewPrometheusRecorder registers the service collectors plus the Go runtime
// and process collectors.
func NewPrometheusRecorder() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streetcrime_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "endpoint", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streetcrime_http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"method", "endpoint"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streetcrime_cache_lookups_total",
			Help: "Memoization cache lookups by namespace and result.",
		}, []string{"namespace", "result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streetcrime_query_outcomes_total",
			Help: "Crime queries by result state.",
		}, []string{"state"}),
	}

	p.registry.MustRegister(
		p.requests,
		p.latency,
		p.cacheLookups,
		p.outcomes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *PrometheusRecorder) RecordRequest(method, endpoint, status string, duration time.Duration) {
	p.requests.WithLabelValues(method, endpoint, status).Inc()
	p.latency.WithLabelValues(method, endpoint).Observe(float64(duration.Milliseconds()))
}

func (p *PrometheusRecorder) RecordCacheLookup(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(namespace, result).Inc()
}

func (p *PrometheusRecorder) RecordQueryOutcome(state string) {
	p.outcomes.WithLabelValues(state).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

var _ Recorder = (*PrometheusRecorder)(nil)
