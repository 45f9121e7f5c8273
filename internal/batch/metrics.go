package batch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
)

const instrumentationScope = "github.com/ignite/mailbox-bulkops/internal/batch"

// engineMetrics holds the OTel instruments the engine reports to.
type engineMetrics struct {
	chunks   metric.Int64Counter
	retries  metric.Int64Counter
	items    metric.Int64Counter
	duration metric.Float64Histogram
}

func newEngineMetrics(mp metric.MeterProvider, sizer *AdaptiveSizer, breaker *CircuitBreaker) *engineMetrics {
	meter := mp.Meter(instrumentationScope)
	m := &engineMetrics{}

	var err error
	if m.chunks, err = meter.Int64Counter("bulkops.chunks",
		metric.WithDescription("Chunks executed against the mail provider"),
		metric.WithUnit("{chunk}")); err != nil {
		logger.Warn("metric registration failed", "instrument", "bulkops.chunks", "error", err)
	}
	if m.retries, err = meter.Int64Counter("bulkops.chunk.retries",
		metric.WithDescription("Chunks that needed at least one retry"),
		metric.WithUnit("{chunk}")); err != nil {
		logger.Warn("metric registration failed", "instrument", "bulkops.chunk.retries", "error", err)
	}
	if m.items, err = meter.Int64Counter("bulkops.items",
		metric.WithDescription("Item outcomes recorded"),
		metric.WithUnit("{item}")); err != nil {
		logger.Warn("metric registration failed", "instrument", "bulkops.items", "error", err)
	}
	if m.duration, err = meter.Float64Histogram("bulkops.operation.duration",
		metric.WithDescription("Wall time of a whole bulk operation"),
		metric.WithUnit("s")); err != nil {
		logger.Warn("metric registration failed", "instrument", "bulkops.operation.duration", "error", err)
	}

	if _, err = meter.Int64ObservableGauge("bulkops.adaptive_batch_size",
		metric.WithDescription("Current label modification chunk size"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(sizer.Current()))
			return nil
		})); err != nil {
		logger.Warn("metric registration failed", "instrument", "bulkops.adaptive_batch_size", "error", err)
	}
	if _, err = meter.Int64ObservableGauge("bulkops.circuit_breaker.consecutive_failures",
		metric.WithDescription("Consecutive failed chunks seen by the circuit breaker"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(breaker.Stats().ConsecutiveFailures))
			return nil
		})); err != nil {
		logger.Warn("metric registration failed", "instrument", "bulkops.circuit_breaker.consecutive_failures", "error", err)
	}

	return m
}

func (m *engineMetrics) recordChunk(ctx context.Context, kind OperationKind, o ChunkOutcome) {
	outcome := "success"
	if !o.Success {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", string(kind)),
		attribute.String("outcome", outcome),
	)
	if m.chunks != nil {
		m.chunks.Add(ctx, 1, attrs)
	}
	if m.items != nil {
		m.items.Add(ctx, int64(len(o.Chunk)), attrs)
	}
	if o.Retried() && m.retries != nil {
		m.retries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", string(kind))))
	}
}

func (m *engineMetrics) recordOperation(ctx context.Context, kind OperationKind, elapsed time.Duration) {
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("operation", string(kind))))
	}
}
