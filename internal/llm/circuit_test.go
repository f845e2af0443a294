package llm

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Hour,
	})

	for range 3 {
		if err := cb.Allow(); err != nil {
			t.Fatalf("Allow() while closed = %v", err)
		}
		cb.Failure()
	}

	if got := cb.State(); got != CircuitOpen {
		t.Fatalf("State() = %v, want open", got)
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	})

	cb.Failure()
	if got := cb.State(); got != CircuitOpen {
		t.Fatalf("State() after failure = %v, want open", got)
	}

	time.Sleep(5 * time.Millisecond)

	// First Allow after the timeout transitions to half-open.
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after timeout = %v", err)
	}
	if got := cb.State(); got != CircuitHalfOpen {
		t.Fatalf("State() = %v, want half-open", got)
	}

	cb.Success()
	cb.Success()
	if got := cb.State(); got != CircuitClosed {
		t.Errorf("State() after recovery = %v, want closed", got)
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Millisecond,
	})

	cb.Failure()
	time.Sleep(5 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}

	cb.Failure()
	if got := cb.State(); got != CircuitOpen {
		t.Errorf("State() after half-open failure = %v, want open", got)
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	cb.Failure()
	cb.Success()
	cb.Failure()

	if got := cb.State(); got != CircuitClosed {
		t.Errorf("State() = %v, want closed (success resets the failure count)", got)
	}
}

func TestCircuitStateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
