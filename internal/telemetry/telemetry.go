// Package telemetry records service metrics. A Recorder is injected into the
// HTTP chassis (request latency/count), the cache (hit/miss) and the query
// pipeline (outcome per result state). Backends: Prometheus, CloudWatch, or
// none.
package telemetry

import "time"

// Metric names shared by all backends.
const (
	MetricAPIRequestCount = "APIRequestCount"
	MetricAPILatency      = "APILatency"
	MetricCacheLookup     = "CacheLookup"
	MetricQueryOutcome    = "QueryOutcome"
)

// Recorder is implemented by every backend.
type Recorder interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
	RecordCacheLookup(namespace string, hit bool)
	RecordQueryOutcome(state string)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) RecordRequest(string, string, string, time.Duration) {}
func (Noop) RecordCacheLookup(string, bool)                      {}
func (Noop) RecordQueryOutcome(string)                           {}

// Backend identifiers accepted by METRICS_BACKEND.
const (
	BackendPrometheus = "prometheus"
	BackendCloudWatch = "cloudwatch"
	BackendNone       = "none"
)

var _ Recorder = Noop{}
