package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailbox-bulkops/internal/config"
)

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Redis.URL = "redis://" + mr.Addr()

	a := New(context.Background(), cfg, Options{})
	t.Cleanup(func() { a.Close() })

	require.NotNil(t, a.Redis)
	assert.NotNil(t, a.Service)
	assert.Equal(t, 50, a.Engine.MaxBatchSize())
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Redis.URL = "redis://" + addr

	a := New(context.Background(), cfg, Options{})
	assert.Nil(t, a.Redis)
	assert.NotNil(t, a.Service)
	assert.NoError(t, a.Close())
}

func TestNew_WithoutRedis(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	a := New(context.Background(), cfg, Options{})
	assert.Nil(t, a.Redis)
	assert.NoError(t, a.Close())
}
