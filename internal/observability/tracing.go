// Package observability provides OpenTelemetry tracing over OTLP HTTP.
//
// Traces are exported to a local collector (OTLP HTTP on localhost:4318
// by default); the collector handles authentication and forwarding to
// whatever backend is configured. Tracing is best effort: an exporter
// that cannot be created disables tracing instead of failing startup.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for tracing setup.
type Config struct {
	// Endpoint is the OTLP HTTP collector endpoint, host:port.
	Endpoint string
	// ServiceName appears on every exported span.
	ServiceName string
	// Environment is the deployment environment tag (dev, staging, prod).
	Environment string
}

// DefaultEndpoint is the conventional local OTLP HTTP collector port.
const DefaultEndpoint = "localhost:4318"

// Setup registers an OTLP span exporter with Genkit's TracerProvider,
// so pipeline spans (embedding, retrieval, generation) and our own
// spans share one provider. Returns a shutdown function that flushes
// pending spans.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads these at span creation time.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		slog.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
