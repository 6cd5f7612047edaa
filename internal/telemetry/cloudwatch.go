package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// cloudWatchBatchLimit is the PutMetricData per-call datum limit.
const cloudWatchBatchLimit = 1000

// flushTimeout bounds one periodic PutMetricData round.
const flushTimeout = 10 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder buffers datums in memory and publishes them on Flush,
// keeping CloudWatch round trips off the request path.
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending []cwtypes.MetricDatum
}

// NewCloudWatchRecorder creates a recorder publishing to namespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{
		client:    client,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (m *CloudWatchRecorder) add(d ...cwtypes.MetricDatum) {
	ts := m.now()
	for i := range d {
		d[i].Timestamp = aws.Time(ts)
	}
	m.mu.Lock()
	m.pending = append(m.pending, d...)
	m.mu.Unlock()
}

// RecordRequest emits APIRequestCount {Method, Endpoint, Status} and
// APILatency {Endpoint} in milliseconds.
func (m *CloudWatchRecorder) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.add(
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{dim("Method", method), dim("Endpoint", endpoint), dim("Status", status)},
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{dim("Endpoint", endpoint)},
		},
	)
}

// RecordCacheLookup emits CacheLookup {Namespace, Result}.
func (m *CloudWatchRecorder) RecordCacheLookup(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.add(cwtypes.MetricDatum{
		MetricName: aws.String(MetricCacheLookup),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim("Namespace", namespace), dim("Result", result)},
	})
}

// RecordQueryOutcome emits QueryOutcome {State}.
func (m *CloudWatchRecorder) RecordQueryOutcome(state string) {
	m.add(cwtypes.MetricDatum{
		MetricName: aws.String(MetricQueryOutcome),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim("State", state)},
	})
}

// Flush publishes every buffered datum in batches. Datums from a failed batch
// are dropped and logged; metrics are best effort.
func (m *CloudWatchRecorder) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	var firstErr error
	for start := 0; start < len(batch); start += cloudWatchBatchLimit {
		end := min(start+cloudWatchBatchLimit, len(batch))
		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch[start:end],
		})
		if err != nil {
			m.logger.Error("failed to publish metrics",
				"error", err.Error(),
				"datums", end-start,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Run flushes every interval until ctx is cancelled. Each flush gets its own
// deadline so a cancellation mid-publish does not drop the batch. Datums
// recorded after the last tick stay buffered for the caller's final Flush.
func (m *CloudWatchRecorder) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			_ = m.Flush(flushCtx)
			cancel()
		}
	}
}

// Start runs the periodic flusher in the background. The returned stop
// function waits for the flusher to exit once ctx is done, then publishes
// whatever is still buffered. Register it as a shutdown hook.
func (m *CloudWatchRecorder) Start(ctx context.Context, interval time.Duration) (stop func(context.Context) error) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(ctx, interval)
	}()

	return func(shutdownCtx context.Context) error {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			return shutdownCtx.Err()
		}
		return m.Flush(shutdownCtx)
	}
}

var _ Recorder = (*CloudWatchRecorder)(nil)
