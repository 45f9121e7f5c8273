// Package distlock provides short-lived mutual exclusion keyed by string,
// backed by Redis when available and by process memory otherwise.
package distlock

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Extend when the lock expired or was taken over.
var ErrNotHeld = errors.New("lock not held")

// Lock is one acquisition attempt on a key. A Lock is used from a single
// goroutine; create one per operation.
type Lock interface {
	// Acquire tries to take the lock without blocking. It reports whether it
	// succeeded.
	Acquire(ctx context.Context) (bool, error)
	// Extend pushes the expiry out to ttl from now if the lock is still held.
	Extend(ctx context.Context, ttl time.Duration) error
	// Release gives the lock up if it is still held.
	Release(ctx context.Context) error
}

// Factory creates locks for keys.
type Factory interface {
	NewLock(key string, ttl time.Duration) Lock
}

// NewFactory returns a Redis-backed factory when client is non-nil and an
// in-process one otherwise. prefix namespaces the Redis keys.
func NewFactory(client redis.UniversalClient, prefix string) Factory {
	if client != nil {
		return &redisFactory{client: client, prefix: prefix}
	}
	return NewLocalFactory()
}

type redisFactory struct {
	client redis.UniversalClient
	prefix string
}

func (f *redisFactory) NewLock(key string, ttl time.Duration) Lock {
	return NewRedisLock(f.client, f.prefix+key, ttl)
}
