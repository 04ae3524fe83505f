// Package observability wires an OTLP trace exporter into Genkit's
// TracerProvider, so every generation call (clarify, plan, the N artifact
// streams) shows up as a span in whatever backend sits behind a local
// OTLP HTTP collector (Datadog Agent, otel-collector, Jaeger).
//
// Tracing is best-effort: a collector that is down must never take the
// service with it, so exporter creation failure degrades to a no-op.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultCollectorHost is the default OTLP HTTP endpoint.
const DefaultCollectorHost = "localhost:4318"

// Config for OTLP trace export.
type Config struct {
	// CollectorHost is the OTLP HTTP endpoint (default: localhost:4318).
	CollectorHost string
	// ServiceName is the service name reported on spans.
	ServiceName string
	// Environment is the deployment environment tag (dev, staging, prod).
	Environment string
}

// Setup registers an OTLP exporter with Genkit's TracerProvider and
// returns a shutdown function that flushes pending spans. On exporter
// failure it logs a warning and returns a no-op shutdown.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	host := cfg.CollectorHost
	if host == "" {
		host = DefaultCollectorHost
	}

	// Genkit's TracerProvider picks these up for span resource attributes.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		slog.Warn("failed to create OTLP exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("tracing enabled",
		"collector", host,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
