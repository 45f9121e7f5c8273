// Package telemetry installs the process-wide OpenTelemetry meter provider.
//
// Telemetry is off by default and then costs nothing: a no-op provider is
// installed. When enabled, metrics are exported periodically to stdout, to an
// OTLP/HTTP collector, or both. Stdout is used when no collector is set.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/ignite/mailbox-bulkops/internal/config"
	"github.com/ignite/mailbox-bulkops/internal/pkg/logger"
)

// Version is reported as service.version.
var Version = "dev"

// ShutdownFunc flushes and stops the installed provider.
type ShutdownFunc func(context.Context) error

// Init builds a meter provider from cfg, installs it globally and returns it
// with its shutdown function.
func Init(ctx context.Context, cfg config.TelemetryConfig) (metric.MeterProvider, ShutdownFunc, error) {
	if !cfg.Enabled {
		mp := metricnoop.NewMeterProvider()
		otel.SetMeterProvider(mp)
		return mp, func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(Version),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	readers, err := buildReaders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	logger.Info("telemetry enabled",
		"service", cfg.ServiceName, "readers", len(readers), "interval", cfg.ExportInterval())
	return mp, mp.Shutdown, nil
}

func buildReaders(ctx context.Context, cfg config.TelemetryConfig) ([]sdkmetric.Reader, error) {
	interval := sdkmetric.WithInterval(cfg.ExportInterval())
	var readers []sdkmetric.Reader

	if cfg.OTLPEndpoint != "" {
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp, interval))
	}

	if cfg.Stdout || len(readers) == 0 {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, errors.Join(fmt.Errorf("telemetry: stdout exporter: %w", err), shutdownAll(ctx, readers))
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exp, interval))
	}
	return readers, nil
}

func shutdownAll(ctx context.Context, readers []sdkmetric.Reader) error {
	var errs []error
	for _, r := range readers {
		errs = append(errs, r.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
