package batch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
)

// sleepFunc blocks for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext waits on a timer so a cancelled context ends the wait early.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChunkOutcome is the result of executing one chunk, retries included.
type ChunkOutcome struct {
	Index    int
	Chunk    []string
	Success  bool
	Attempts int
	// LastError is the message of the most recent failed attempt. It is also
	// set when the chunk eventually succeeded after failing at least once.
	LastError string
	Kind      ErrorKind
}

// Retried reports whether the chunk needed more than one attempt.
func (o ChunkOutcome) Retried() bool { return o.Attempts > 1 }

// chunkCall performs the remote operation for one chunk.
type chunkCall func(ctx context.Context, chunk []string) error

// retryPolicy is the attempt budget and backoff schedule for one chunk.
type retryPolicy struct {
	maxAttempts int
	initial     time.Duration
	multiplier  float64
	maxBackoff  time.Duration
}

// newBackOff returns a fresh schedule yielding
// min(maxBackoff, initial * multiplier^(n-1)) for the n-th retry.
func (p retryPolicy) newBackOff() *backoff.ExponentialBackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initial
	bo.Multiplier = p.multiplier
	bo.MaxInterval = p.maxBackoff
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// execute runs call until it succeeds, fails permanently, or the attempt
// budget is spent. The remote call is atomic, so a failed outcome means every
// id in the chunk failed.
func (p retryPolicy) execute(ctx context.Context, index int, chunk []string, call chunkCall, sleep sleepFunc) ChunkOutcome {
	outcome := ChunkOutcome{Index: index, Chunk: chunk}
	bo := p.newBackOff()

	for {
		outcome.Attempts++
		err := call(ctx, chunk)
		if err == nil {
			outcome.Success = true
			return outcome
		}

		outcome.LastError = err.Error()
		outcome.Kind = Categorize(err)

		if outcome.Kind.Classification() == Permanent {
			logger.Warn("chunk failed permanently",
				"chunk", index, "size", len(chunk), "attempts", outcome.Attempts,
				"kind", outcome.Kind.String(), "error", err)
			return outcome
		}
		if outcome.Attempts >= p.maxAttempts {
			logger.Warn("chunk retries exhausted",
				"chunk", index, "size", len(chunk), "attempts", outcome.Attempts,
				"kind", outcome.Kind.String(), "error", err)
			return outcome
		}

		delay := bo.NextBackOff()
		logger.Info("retrying chunk",
			"chunk", index, "attempt", outcome.Attempts+1, "max_attempts", p.maxAttempts,
			"delay", delay, "kind", outcome.Kind.String(), "error", err)

		if serr := sleep(ctx, delay); serr != nil {
			outcome.LastError = serr.Error()
			outcome.Kind = KindPermanentClient
			return outcome
		}
	}
}
