// Package observability wires OpenTelemetry tracing. Spans are exported over
// OTLP HTTP to a local collector or agent, which handles authentication and
// forwarding to whatever backend the deployment uses.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ashaai/asha/internal/config"
	"github.com/ashaai/asha/internal/log"
)

// DefaultEndpoint is the conventional local OTLP HTTP endpoint.
const DefaultEndpoint = "localhost:4318"

// Setup configures the global tracer provider from cfg and returns a tracer
// plus a shutdown function that flushes pending spans. When tracing is
// disabled, or the exporter cannot be created, it returns a no-op tracer and
// a no-op shutdown; tracing problems never take the service down.
func Setup(ctx context.Context, cfg config.TracingConfig, logger log.Logger) (trace.Tracer, func(context.Context) error, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	noShutdown := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop.NewTracerProvider().Tracer("asha"), noShutdown, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "asha"
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("trace exporter unavailable, tracing disabled", "error", err)
		return noop.NewTracerProvider().Tracer("asha"), noShutdown, nil
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	)
	otel.SetTracerProvider(provider)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", serviceName,
		"environment", cfg.Environment,
	)
	return provider.Tracer("asha"), provider.Shutdown, nil
}
