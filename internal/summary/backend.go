// Package summary turns a window of stored thread messages into an AI summary
// and splits it into platform-sized chunks.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/edgard/threadscribe/internal/config"
)

// ErrUnknownProvider is returned by NewBackend for an unregistered ai.provider.
var ErrUnknownProvider = errors.New("unknown AI provider")

// Backend generates a summary from rendered message lines and a system prompt.
type Backend interface {
	Name() string
	GenerateSummary(ctx context.Context, messages []string, prompt string) (string, error)
}

// Factory builds a Backend from the AI configuration.
type Factory func(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"openai": newOpenAIBackend,
		"gemini": newGeminiBackend,
	}
)

// Register adds or replaces a provider.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = f
}

// Providers lists the registered provider names.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend builds the backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg config.AIConfig, logger *slog.Logger) (Backend, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(cfg.Provider)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(Providers(), ", "))
	}

	logger.Info("Initializing AI backend", "provider", cfg.Provider, "model", cfg.Model)
	backend, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.Provider, err)
	}
	return WithCircuitBreaker(backend, cfg.BreakerFailures, cfg.BreakerCooldown, logger), nil
}
