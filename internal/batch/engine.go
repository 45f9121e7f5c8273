package batch

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ignite/mailbox-bulkops/internal/config"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
)

// Engine runs bulk operations chunk by chunk. Its circuit breaker and adaptive
// sizer are shared by every request it serves.
type Engine struct {
	cfg        config.BatchConfig
	policy     retryPolicy
	breaker    *CircuitBreaker
	sizer      *AdaptiveSizer
	metrics    *engineMetrics
	sleep      sleepFunc
	interChunk time.Duration
}

// Option customizes an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	meterProvider metric.MeterProvider
	sleep         sleepFunc
	now           func() time.Time
}

// WithMeterProvider reports metrics to mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *engineOptions) { o.meterProvider = mp }
}

// WithSleep replaces the blocking wait used for backoff, cooling-off and
// inter-chunk delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *engineOptions) { o.sleep = sleep }
}

// WithClock replaces the circuit breaker's time source.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

// NewEngine creates an engine from batch configuration. Zero-valued fields
// take their defaults.
func NewEngine(cfg config.BatchConfig, opts ...Option) *Engine {
	cfg = cfg.WithDefaults()

	o := engineOptions{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	policy := retryPolicy{
		maxAttempts: cfg.MaxRetryAttempts,
		initial:     cfg.InitialBackoff(),
		multiplier:  cfg.BackoffMultiplier,
		maxBackoff:  cfg.MaxBackoff(),
	}
	if policy.initial > policy.maxBackoff {
		policy.initial = policy.maxBackoff
	}

	breaker := NewCircuitBreaker(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown(), cfg.CircuitBreakerMaxCooldown())
	if o.now != nil {
		breaker.now = o.now
	}
	sizer := NewAdaptiveSizer(cfg.EffectiveMaxBatchSize())

	logger.Debug("batch engine configured",
		"max_batch_size", sizer.Max(),
		"max_retry_attempts", policy.maxAttempts,
		"delay_between_batches", cfg.DelayBetweenBatches(),
		// Batch calls are atomic; the per-item delay has nothing to pace.
		"micro_delay_between_operations", cfg.MicroDelayBetweenOperations(),
	)

	return &Engine{
		cfg:        cfg,
		policy:     policy,
		breaker:    breaker,
		sizer:      sizer,
		metrics:    newEngineMetrics(o.meterProvider, sizer, breaker),
		sleep:      o.sleep,
		interChunk: cfg.DelayBetweenBatches(),
	}
}

// CircuitBreakerStats returns a snapshot of the shared circuit breaker.
func (e *Engine) CircuitBreakerStats() BreakerStats { return e.breaker.Stats() }

// MaxBatchSize returns the adaptive ceiling, clamped to the provider cap.
func (e *Engine) MaxBatchSize() int { return e.sizer.Max() }

// CurrentBatchSize returns the label modification chunk size in effect.
func (e *Engine) CurrentBatchSize() int { return e.sizer.Current() }

// Config returns the effective batch configuration.
func (e *Engine) Config() config.BatchConfig { return e.cfg }

// chunkLimit returns the chunk size for kind at this moment.
func (e *Engine) chunkLimit(kind OperationKind) int {
	if kind == OperationModifyLabels {
		return e.sizer.Current()
	}
	return MaxDeleteBatchSize
}

// Run executes req against client and returns the aggregated result. It never
// fails on its own; use ValidateResult to turn the result into an error.
//
// Chunks run in order on the calling goroutine. When ctx is done before a
// chunk starts, that chunk and all later ones are recorded as failed without
// calling the provider.
func (e *Engine) Run(ctx context.Context, req OperationRequest, client MailboxClient) *Result {
	result := NewResult(string(req.Kind()))
	defer func() {
		result.MarkCompleted()
		e.metrics.recordOperation(ctx, req.Kind(), result.Duration())
	}()

	ids := req.IDs()
	if len(ids) == 0 {
		logger.Info("bulk operation has no items", "operation", string(req.Kind()), "operation_id", result.OperationID)
		return result
	}

	limit := e.chunkLimit(req.Kind())
	chunks := Chunk(ids, limit)
	call := e.callFor(req, client)

	logger.Info("bulk operation started",
		"operation", string(req.Kind()), "operation_id", result.OperationID, "user", req.UserID(),
		"items", len(ids), "chunks", len(chunks), "chunk_size", limit)

	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			e.abandon(result, chunks[i:], err)
			break
		}

		if waited, err := e.breaker.Wait(ctx, e.sleep); err != nil {
			e.abandon(result, chunks[i:], err)
			break
		} else if waited > 0 {
			logger.Warn("circuit breaker open, cooled off before chunk",
				"operation_id", result.OperationID, "chunk", i, "waited", waited)
		}

		outcome := e.policy.execute(ctx, i, chunk, call, e.sleep)
		e.record(ctx, req.Kind(), result, outcome)

		if i < len(chunks)-1 && e.interChunk > 0 {
			if err := e.sleep(ctx, e.interChunk); err != nil {
				e.abandon(result, chunks[i+1:], err)
				break
			}
		}
	}

	logger.Info("bulk operation finished",
		"operation", string(req.Kind()), "operation_id", result.OperationID,
		"succeeded", result.SuccessCount(), "failed", result.FailureCount(),
		"batches", result.BatchesProcessed(), "retried", result.BatchesRetried(),
		"next_chunk_size", e.sizer.Current())
	return result
}

func (e *Engine) callFor(req OperationRequest, client MailboxClient) chunkCall {
	userID := req.UserID()
	if req.Kind() == OperationModifyLabels {
		labels := req.Labels()
		return func(ctx context.Context, chunk []string) error {
			return client.BatchModifyLabels(ctx, userID, chunk, labels)
		}
	}
	return func(ctx context.Context, chunk []string) error {
		return client.BatchDelete(ctx, userID, chunk)
	}
}

// record folds one chunk outcome into the shared state and the result. A
// failure that happened because ctx was cancelled says nothing about provider
// health, so breaker and sizer only see it in the result.
func (e *Engine) record(ctx context.Context, kind OperationKind, result *Result, o ChunkOutcome) {
	if o.Success || ctx.Err() == nil {
		if kind == OperationModifyLabels {
			e.sizer.Record(o.Success)
		}
		e.breaker.Record(o.Success)
	}

	result.IncrementBatchesProcessed()
	if o.Retried() {
		result.IncrementBatchesRetried()
	}

	// Failure history is kept even when a retry later succeeded.
	if o.LastError != "" {
		for _, id := range o.Chunk {
			result.AddFailureKind(id, o.LastError, o.Kind)
		}
	}
	if o.Success {
		for _, id := range o.Chunk {
			result.AddSuccess(id)
		}
	}

	e.metrics.recordChunk(ctx, kind, o)
}

// abandon records chunks that were never attempted because the run stopped.
// Breaker and sizer state are left untouched.
func (e *Engine) abandon(result *Result, chunks [][]string, cause error) {
	msg := cause.Error()
	for _, chunk := range chunks {
		result.IncrementBatchesProcessed()
		for _, id := range chunk {
			result.AddFailureKind(id, msg, KindPermanentClient)
		}
	}
	logger.Warn("bulk operation stopped early",
		"operation_id", result.OperationID, "abandoned_chunks", len(chunks), "error", cause)
}
