// Package bot implements lifecycle management and component orchestration for
// threadscribe: the platform transport, the task scheduler and the optional
// metrics endpoint run side by side until shutdown.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Transport is a connected chat platform. Run blocks, delivering events, until
// ctx is cancelled.
type Transport interface {
	Name() string
	Run(ctx context.Context) error
}

// MetricsServer serves the Prometheus endpoint until ctx is cancelled.
type MetricsServer interface {
	Run(ctx context.Context) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	transport Transport
	scheduler *Scheduler
	metrics   MetricsServer
}

// NewBot creates the orchestrator. metrics may be nil when the endpoint is disabled.
func NewBot(logger *slog.Logger, transport Transport, scheduler *Scheduler, metrics MetricsServer) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		transport: transport,
		scheduler: scheduler,
		metrics:   metrics,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		name := b.transport.Name()
		b.logger.Info("Starting platform listener...", "platform", name)

		err := b.transport.Run(gCtx)
		b.logger.Info("Platform listener stopped.", "platform", name)

		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s listener failed: %w", name, err)
		}
		if gCtx.Err() == nil {
			b.logger.Warn("Platform listener stopped unexpectedly without context cancellation.", "platform", name)
			return fmt.Errorf("%s listener stopped unexpectedly", name)
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(gCtx); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	if b.metrics != nil {
		g.Go(func() error {
			if err := b.metrics.Run(gCtx); err != nil {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
