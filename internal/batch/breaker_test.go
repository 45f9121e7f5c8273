package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(3, time.Second, 5*time.Second)
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)

	cb.Record(false)
	cb.Record(false)
	assert.False(t, cb.Stats().IsOpen)
	assert.Equal(t, time.Duration(0), cb.CoolingOff())

	cb.Record(false)
	stats := cb.Stats()
	assert.True(t, stats.IsOpen)
	assert.Equal(t, 3, stats.ConsecutiveFailures)
	assert.Equal(t, now, stats.LastFailure)
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	for i := 0; i < 3; i++ {
		cb.Record(false)
	}

	cb.Record(true)
	stats := cb.Stats()
	assert.False(t, stats.IsOpen)
	assert.Equal(t, 0, stats.ConsecutiveFailures)
	assert.Equal(t, time.Duration(0), cb.CoolingOff())
}

func TestCircuitBreaker_CoolingOff(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := newTestBreaker(&now)
	for i := 0; i < 3; i++ {
		cb.Record(false)
	}

	assert.Equal(t, 3*time.Second, cb.CoolingOff())

	// Time already elapsed since the last failure counts toward the wait.
	now = now.Add(1200 * time.Millisecond)
	assert.Equal(t, 1800*time.Millisecond, cb.CoolingOff())

	now = now.Add(time.Hour)
	assert.Equal(t, time.Duration(0), cb.CoolingOff())
}

func TestCircuitBreaker_CoolingOffIsCapped(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	for i := 0; i < 12; i++ {
		cb.Record(false)
	}
	assert.Equal(t, 5*time.Second, cb.CoolingOff())
}

func TestCircuitBreaker_Wait(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	sleeper := &sleepRecorder{}

	waited, err := cb.Wait(context.Background(), sleeper.Sleep)
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Empty(t, sleeper.Delays())

	for i := 0; i < 4; i++ {
		cb.Record(false)
	}
	waited, err = cb.Wait(context.Background(), sleeper.Sleep)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, waited)
	assert.Equal(t, []time.Duration{4 * time.Second}, sleeper.Delays())
}

func TestCircuitBreaker_WaitCancelled(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	for i := 0; i < 3; i++ {
		cb.Record(false)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cb.Wait(ctx, sleepContext)
	assert.ErrorIs(t, err, context.Canceled)
}
