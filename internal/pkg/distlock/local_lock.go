package distlock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocalFactory hands out locks that exclude each other within one process.
// Used when no Redis is configured.
type LocalFactory struct {
	mu      sync.Mutex
	holders map[string]localHolder
	now     func() time.Time
}

type localHolder struct {
	owner   *localLock
	expires time.Time
}

// NewLocalFactory creates an empty in-process lock table.
func NewLocalFactory() *LocalFactory {
	return &LocalFactory{holders: make(map[string]localHolder), now: time.Now}
}

func (f *LocalFactory) NewLock(key string, ttl time.Duration) Lock {
	return &localLock{table: f, key: key, ttl: ttl}
}

type localLock struct {
	table *LocalFactory
	key   string
	ttl   time.Duration
}

func (l *localLock) Acquire(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	t := l.table
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if h, ok := t.holders[l.key]; ok && h.owner != l && now.Before(h.expires) {
		return false, nil
	}
	t.holders[l.key] = localHolder{owner: l, expires: now.Add(l.ttl)}
	return true, nil
}

func (l *localLock) Extend(_ context.Context, ttl time.Duration) error {
	t := l.table
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	h, ok := t.holders[l.key]
	if !ok || h.owner != l || !now.Before(h.expires) {
		return fmt.Errorf("extend lock %s: %w", l.key, ErrNotHeld)
	}
	t.holders[l.key] = localHolder{owner: l, expires: now.Add(ttl)}
	return nil
}

func (l *localLock) Release(context.Context) error {
	t := l.table
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.holders[l.key]; ok && h.owner == l {
		delete(t.holders, l.key)
	}
	return nil
}
