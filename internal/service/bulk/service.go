package bulk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/mailbox-bulkops/internal/batch"
	"github.com/ignite/mailbox-bulkops/internal/pkg/distlock"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
)

// ClientFactory builds a provider client for a caller credential.
type ClientFactory interface {
	ForToken(ctx context.Context, tok *oauth2.Token) (batch.MailboxClient, error)
}

// Service executes bulk operations. It is safe for concurrent use.
type Service struct {
	engine  *batch.Engine
	clients ClientFactory
	locks   distlock.Factory
	lockTTL time.Duration

	active atomic.Int64
}

// NewService wires the engine, client factory and lock factory together.
// The per-mailbox lock TTL comes from the engine configuration.
func NewService(engine *batch.Engine, clients ClientFactory, locks distlock.Factory) *Service {
	return &Service{
		engine:  engine,
		clients: clients,
		locks:   locks,
		lockTTL: engine.Config().LockTTL(),
	}
}

// Execute runs req with the caller's token. The result is returned whenever
// the engine ran, together with the batch.ValidateResult error if the outcome
// is not acceptable under failOnPartialFailure.
func (s *Service) Execute(ctx context.Context, tok *oauth2.Token, req batch.OperationRequest, failOnPartialFailure bool) (*batch.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	client, err := s.clients.ForToken(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("create mailbox client: %w", err)
	}

	lock := s.locks.NewLock(lockKey(req.UserID(), tok), s.lockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire mailbox lock: %w", err)
	}
	if !acquired {
		return nil, ErrOperationInProgress
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("release mailbox lock failed", "user", req.UserID(), "error", err)
		}
	}()

	stop := s.keepAlive(ctx, lock, req.UserID())
	defer stop()

	s.active.Add(1)
	defer s.active.Add(-1)

	result := s.engine.Run(ctx, req, client)
	return result, batch.ValidateResult(result, failOnPartialFailure)
}

// keepAlive extends lock every half TTL until the returned func is called.
func (s *Service) keepAlive(ctx context.Context, lock distlock.Lock, user string) (stop func()) {
	interval := s.lockTTL / 2
	if interval <= 0 {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Extend(ctx, s.lockTTL); err != nil {
					logger.Warn("extend mailbox lock failed", "user", user, "error", err)
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}

// lockKey identifies the mailbox an operation targets. The "me" alias is
// resolved by the provider from the token, so the token stands in for it.
func lockKey(userID string, tok *oauth2.Token) string {
	if userID != "me" || tok == nil {
		return "mailbox:" + userID
	}
	sum := sha256.Sum256([]byte(tok.AccessToken))
	return "mailbox:token:" + hex.EncodeToString(sum[:8])
}

// Stats is a snapshot of the shared engine state.
type Stats struct {
	CircuitBreaker   batch.BreakerStats `json:"circuitBreaker"`
	MaxBatchSize     int                `json:"maxBatchSize"`
	CurrentBatchSize int                `json:"currentBatchSize"`
	ActiveOperations int                `json:"activeOperations"`
}

// Stats reports the engine's circuit breaker and adaptive sizing state.
func (s *Service) Stats() Stats {
	return Stats{
		CircuitBreaker:   s.engine.CircuitBreakerStats(),
		MaxBatchSize:     s.engine.MaxBatchSize(),
		CurrentBatchSize: s.engine.CurrentBatchSize(),
		ActiveOperations: int(s.active.Load()),
	}
}
