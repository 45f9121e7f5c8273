package batch

import (
	"context"
	"sync"
	"time"
)

// BreakerStats is a read-only snapshot of the circuit breaker.
type BreakerStats struct {
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	IsOpen              bool      `json:"isOpen"`
	LastFailure         time.Time `json:"lastFailure,omitempty"`
}

// CircuitBreaker opens after a run of consecutive chunk failures. While open
// it throttles rather than rejects: Wait blocks for a cooling-off delay, after
// which the chunk proceeds. A single success closes it.
type CircuitBreaker struct {
	threshold   int
	cooldown    time.Duration
	maxCooldown time.Duration
	now         func() time.Time

	mu                  sync.Mutex
	consecutiveFailures int
	open                bool
	lastFailure         time.Time
}

// NewCircuitBreaker creates a closed breaker. The cooling-off delay grows by
// cooldown per consecutive failure, capped at maxCooldown.
func NewCircuitBreaker(threshold int, cooldown, maxCooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if maxCooldown < cooldown {
		maxCooldown = cooldown
	}
	return &CircuitBreaker{
		threshold:   threshold,
		cooldown:    cooldown,
		maxCooldown: maxCooldown,
		now:         time.Now,
	}
}

// Record updates the breaker with one chunk outcome.
func (cb *CircuitBreaker) Record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.consecutiveFailures = 0
		cb.open = false
		return
	}

	cb.consecutiveFailures++
	cb.lastFailure = cb.now()
	if cb.consecutiveFailures >= cb.threshold {
		cb.open = true
	}
}

// CoolingOff returns how long a chunk attempt must still wait. It is zero
// while the breaker is closed. The delay is measured from the last failure, so
// time already spent elsewhere (the inter-chunk delay, other requests' chunks)
// counts toward it.
func (cb *CircuitBreaker) CoolingOff() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return 0
	}
	delay := time.Duration(cb.consecutiveFailures) * cb.cooldown
	if delay > cb.maxCooldown {
		delay = cb.maxCooldown
	}
	remaining := delay - cb.now().Sub(cb.lastFailure)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Wait blocks for the remaining cooling-off delay using sleep. It returns the
// time it waited and any error from sleep (context cancellation).
func (cb *CircuitBreaker) Wait(ctx context.Context, sleep sleepFunc) (time.Duration, error) {
	d := cb.CoolingOff()
	if d <= 0 {
		return 0, nil
	}
	return d, sleep(ctx, d)
}

// Stats returns a snapshot of the breaker state.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		ConsecutiveFailures: cb.consecutiveFailures,
		IsOpen:              cb.open,
		LastFailure:         cb.lastFailure,
	}
}
