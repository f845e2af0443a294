package observability

import (
	"context"
	"testing"

	"github.com/ashaai/asha/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	t.Parallel()

	tracer, shutdown, err := Setup(context.Background(), config.TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tracer == nil {
		t.Fatal("nil tracer")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	// The OTLP HTTP exporter does not dial at construction time, so setup
	// succeeds even without a collector listening.
	cfg := config.TracingConfig{
		Enabled:     true,
		Endpoint:    "localhost:1", // nothing listens here
		ServiceName: "asha-test",
		Environment: "test",
	}
	tracer, shutdown, err := Setup(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if tracer == nil {
		t.Fatal("nil tracer")
	}
	_, span := tracer.Start(context.Background(), "test.span")
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx) // flush fails without a collector; only liveness matters
}
