package summary

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker(t *testing.T) {
	t.Parallel()

	failing := &echoBackend{err: errors.New("503 overloaded")}
	b := WithCircuitBreaker(failing, 2, time.Hour, discardLogger())
	if b.Name() != "echo" {
		t.Errorf("Name() = %q, want echo", b.Name())
	}

	for i := 0; i < 2; i++ {
		if _, err := b.GenerateSummary(context.Background(), []string{"x"}, "p"); err == nil || errors.Is(err, ErrBackendUnavailable) {
			t.Fatalf("call %d error = %v, want provider error", i, err)
		}
	}
	_, err := b.GenerateSummary(context.Background(), []string{"x"}, "p")
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("open circuit error = %v, want ErrBackendUnavailable", err)
	}
	if failing.calls != 2 {
		t.Errorf("provider calls = %d, want 2", failing.calls)
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()

	cancelled := &echoBackend{err: context.Canceled}
	b := WithCircuitBreaker(cancelled, 1, time.Hour, discardLogger())
	for i := 0; i < 3; i++ {
		if _, err := b.GenerateSummary(context.Background(), nil, "p"); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d error = %v, want context.Canceled", i, err)
		}
	}

	ok := &echoBackend{}
	b = WithCircuitBreaker(ok, 1, time.Hour, discardLogger())
	got, err := b.GenerateSummary(context.Background(), []string{"a", "b"}, "p")
	if err != nil || got != "a\nb" {
		t.Errorf("GenerateSummary() = %q, %v", got, err)
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	t.Parallel()
	inner := &echoBackend{}
	if got := WithCircuitBreaker(inner, 0, 0, nil); got != Backend(inner) {
		t.Errorf("WithCircuitBreaker(0) = %T, want the backend unchanged", got)
	}
}
