// Package app assembles the bulk operation stack from configuration. It is
// shared by the HTTP server and the CLI.
package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/mailbox-bulkops/internal/batch"
	"github.com/ignite/mailbox-bulkops/internal/config"
	"github.com/ignite/mailbox-bulkops/internal/gmail"
	"github.com/ignite/mailbox-bulkops/internal/pkg/distlock"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
	"github.com/ignite/mailbox-bulkops/internal/service/bulk"
)

// App holds the wired components.
type App struct {
	Engine  *batch.Engine
	Service *bulk.Service
	Redis   *redis.Client
}

// Options replaces parts of the stack, mainly for tests.
type Options struct {
	Clients       bulk.ClientFactory
	EngineOptions []batch.Option
}

// New builds the engine, lock factory and bulk service. A Redis URL that does
// not answer a ping falls back to in-process locking.
func New(ctx context.Context, cfg *config.Config, opts Options) *App {
	a := &App{}

	var locks distlock.Factory
	if rdb := connectRedis(ctx, cfg.Redis); rdb != nil {
		a.Redis = rdb
		locks = distlock.NewFactory(rdb, cfg.Redis.KeyPrefix+":")
	} else {
		locks = distlock.NewLocalFactory()
	}

	clients := opts.Clients
	if clients == nil {
		clients = gmail.NewClientFactory(cfg.Gmail)
	}

	a.Engine = batch.NewEngine(cfg.Batch, opts.EngineOptions...)
	a.Service = bulk.NewService(a.Engine, clients, locks)

	logger.Info("bulk operation stack ready",
		"max_batch_size", a.Engine.MaxBatchSize(),
		"delete_chunk_size", batch.MaxDeleteBatchSize,
		"max_retry_attempts", cfg.Batch.MaxRetryAttempts,
		"distributed_locks", a.Redis != nil)
	return a
}

// Close releases the Redis connection, if any.
func (a *App) Close() error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Close()
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		logger.Info("redis not configured, using in-process operation locks")
		return nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{Addr: cfg.URL}
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis connection failed, using in-process operation locks", "addr", opts.Addr, "error", err)
		rdb.Close()
		return nil
	}
	logger.Info("redis connected", "addr", opts.Addr)
	return rdb
}
