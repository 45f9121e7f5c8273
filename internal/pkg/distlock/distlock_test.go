package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_Exclusive(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	factory := NewFactory(client, "bulkops:")

	first := factory.NewLock("user:me", time.Minute)
	second := factory.NewLock("user:me", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:bulkops:user:me"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// A non-owner release leaves the key alone.
	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists("lock:bulkops:user:me"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists("lock:bulkops:user:me"))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_Extend(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	lock := NewRedisLock(client, "k", time.Second)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Extend(ctx, time.Minute))
	assert.Greater(t, mr.TTL(lock.Key()), 30*time.Second)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, lock.Extend(ctx, time.Minute), ErrNotHeld)
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	first := NewRedisLock(client, "k", time.Second)
	second := NewRedisLock(client, "k", time.Second)

	ok, _ := first.Acquire(ctx)
	require.True(t, ok)
	mr.FastForward(2 * time.Second)

	ok, err := second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ServerDown(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	_, err := NewRedisLock(client, "k", time.Second).Acquire(context.Background())
	assert.Error(t, err)
}

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	factory := NewLocalFactory()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	factory.now = func() time.Time { return now }

	first := factory.NewLock("user:me", time.Minute)
	second := factory.NewLock("user:me", time.Minute)
	other := factory.NewLock("user:you", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = second.Acquire(ctx)
	assert.False(t, ok)
	ok, _ = other.Acquire(ctx)
	assert.True(t, ok, "different keys do not conflict")

	assert.ErrorIs(t, second.Extend(ctx, time.Minute), ErrNotHeld)
	require.NoError(t, first.Extend(ctx, time.Minute))

	now = now.Add(2 * time.Minute)
	ok, _ = second.Acquire(ctx)
	assert.True(t, ok, "expired holder is replaced")
	assert.ErrorIs(t, first.Extend(ctx, time.Minute), ErrNotHeld)

	require.NoError(t, first.Release(ctx))
	ok, _ = factory.NewLock("user:me", time.Minute).Acquire(ctx)
	assert.False(t, ok, "release by a stale holder keeps the current one")
}

func TestNewFactory_FallsBackToLocal(t *testing.T) {
	_, ok := NewFactory(nil, "x").(*LocalFactory)
	assert.True(t, ok)
}
