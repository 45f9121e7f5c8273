package api

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailbox-bulkops/internal/config"
)

func TestServer_AddrFromConfig(t *testing.T) {
	t.Setenv("SERVER_HOST", "")
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")

	s := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 9091}, &mockService{}, false)
	assert.Equal(t, "127.0.0.1:9091", s.Addr())
	assert.NotNil(t, s.Handler())
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := NewServer(config.ServerConfig{Host: "127.0.0.1"}, &mockService{}, false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-served:
		assert.NoError(t, err, "clean shutdown is not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
