package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/threadscribe/internal/bot"
	"github.com/edgard/threadscribe/internal/bot/handlers"
	"github.com/edgard/threadscribe/internal/bot/tasks"
	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/discord"
	"github.com/edgard/threadscribe/internal/ingest"
	"github.com/edgard/threadscribe/internal/metrics"
	"github.com/edgard/threadscribe/internal/summary"
	"github.com/edgard/threadscribe/internal/telegram"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
}

// platformAdapter is a chat transport that also answers platform queries.
type platformAdapter interface {
	bot.Transport
	chat.Platform
	Attach(router *handlers.Router, reconciler *ingest.Reconciler)
}

// runServe initializes and starts all application components (db, ai backend,
// platform, scheduler, metrics) and blocks until shutdown.
func runServe(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log

	if err := cfg.ValidateServe(); err != nil {
		log.Error("Invalid configuration for serve", "error", err)
		return err
	}

	db, err := database.NewDB(cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		log.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
		return err
	}
	defer database.CloseDB(db) // Ensure DB is closed on function exit
	store := database.NewStore(db, log)

	backend, err := summary.NewBackend(ctx, cfg.AI, log)
	if err != nil {
		log.Error("Failed to initialize AI backend", "provider", cfg.AI.Provider, "error", err)
		return err
	}

	adapter, err := newPlatform(ctx, a)
	if err != nil {
		log.Error("Failed to create platform adapter", "platform", cfg.Platform, "error", err)
		return err
	}

	roles := chat.NewRoleClassifier(cfg.Roles.Dev, cfg.Roles.Mod)
	reconciler := ingest.NewReconciler(store, adapter, roles, ingest.Options{
		SkipOtherBots: cfg.Ingest.SkipOtherBots,
		Retention:     cfg.Retention.Period(),
		ProgressEvery: cfg.Ingest.ProgressEvery,
	}, log)

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Platform:   adapter,
		Roles:      roles,
		Reconciler: reconciler,
		Summarizer: summary.NewSummarizer(store, backend, cfg.AI.Prompt, cfg.AI.Timeout, log),
	}
	adapter.Attach(handlers.NewRouter(hDeps), reconciler)

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
		Now:    time.Now,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	var metricsServer bot.MetricsServer
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, store, log)
	}

	log.Info("Starting bot...", "platform", adapter.Name(), "ai_provider", backend.Name())
	return bot.NewBot(log, adapter, sched, metricsServer).Run(ctx)
}

func newPlatform(ctx context.Context, a *app) (platformAdapter, error) {
	cfg := a.cfg
	switch cfg.Platform {
	case "discord":
		return discord.New(discord.Options{
			Token:            cfg.Discord.Token,
			CommandPrefix:    cfg.Discord.CommandPrefix,
			StateMaxMessages: cfg.Discord.StateMaxMessages,
			HistoryPageMax:   cfg.Ingest.HistoryPageMax,
			DBTimeout:        cfg.Bot.DBTimeout,
		}, a.log)
	case "telegram":
		return telegram.New(ctx, telegram.Options{
			Token:          cfg.Telegram.Token,
			DBTimeout:      cfg.Bot.DBTimeout,
			UnknownCommand: cfg.Messages.UnknownCommand,
		}, a.log)
	default:
		return nil, fmt.Errorf("unsupported platform %q", cfg.Platform)
	}
}
