package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ignite/mailbox-bulkops/internal/config"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
)

// Server serves the bulk operations API.
type Server struct {
	handler http.Handler
	srv     *http.Server
}

// NewServer builds the router and an http.Server bound to cfg's host and port.
// Bulk operations run inside the request, so cfg's write timeout is also the
// upper bound on a single operation.
func NewServer(cfg config.ServerConfig, svc BulkService, failOnPartialFailure bool) *Server {
	h := SetupRoutes(NewHandlers(svc, failOnPartialFailure), cfg)
	return &Server{
		handler: h,
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.GetHost(), cfg.Port),
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout(),
			ReadHeaderTimeout: 15 * time.Second,
			WriteTimeout:      cfg.WriteTimeout(),
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// ListenAndServe listens on Addr and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. A clean Shutdown returns nil.
func (s *Server) Serve(ln net.Listener) error {
	logger.Info("api listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight operations.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
