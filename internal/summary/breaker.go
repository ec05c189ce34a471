package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrBackendUnavailable is returned while the circuit is open.
var ErrBackendUnavailable = errors.New("AI backend temporarily unavailable")

// breakerBackend stops calling a provider that keeps failing until the
// cooldown has passed.
type breakerBackend struct {
	Backend
	cb *gobreaker.CircuitBreaker
}

// WithCircuitBreaker wraps b so that after failures consecutive errors calls
// fail fast for cooldown. A single trial call is let through after that.
func WithCircuitBreaker(b Backend, failures int, cooldown time.Duration, logger *slog.Logger) Backend {
	if failures <= 0 {
		return b
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "breaker", "backend", b.Name())

	settings := gobreaker.Settings{
		Name:        b.Name(),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// A caller giving up is not a provider fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &breakerBackend{Backend: b, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerBackend) GenerateSummary(ctx context.Context, messages []string, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.Backend.GenerateSummary(ctx, messages, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
