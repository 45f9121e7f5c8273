package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mailbox-bulkops/internal/api"
	"github.com/ignite/mailbox-bulkops/internal/app"
	"github.com/ignite/mailbox-bulkops/internal/config"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
	"github.com/ignite/mailbox-bulkops/internal/telemetry"
)

var version = "dev"

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %w", port, addr, err)
	}
	return ln.Close()
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config.yaml")
	flag.Parse()

	if _, err := os.Stat(*configPath); err != nil {
		*configPath = ""
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.Human)
	logger.SetRedactPII(cfg.Logging.ShouldRedactPII())
	logger.Info("starting mailbox-bulkops server", "version", version, "config", *configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry.Version = version
	_, shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		logger.Error("cannot bind", "error", err)
		os.Exit(1)
	}

	stack := app.New(ctx, cfg, app.Options{})
	server := api.NewServer(cfg.Server, stack.Service, cfg.Batch.FailOnPartialFailure)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil {
			logger.Error("server error", "addr", server.Addr(), "error", err)
			done <- syscall.SIGTERM
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown error", "error", err)
	}
	if err := stack.Close(); err != nil {
		logger.Warn("redis close error", "error", err)
	}
	logger.Info("server stopped")
}
