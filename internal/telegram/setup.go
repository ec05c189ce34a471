// Package telegram connects threadscribe to Telegram through go-telegram/bot.
// A watched thread is a group chat. The Bot API exposes neither chat history
// nor deletions, so only live messages and edits are recorded.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/threadscribe/internal/bot/handlers"
	"github.com/edgard/threadscribe/internal/ingest"
	"github.com/edgard/threadscribe/internal/logger"
)

// CommandPrefix is the only command prefix Telegram clients understand.
const CommandPrefix = "/"

// Options configures the adapter.
type Options struct {
	Token string
	// DBTimeout bounds the store work done for one incoming update.
	DBTimeout time.Duration
	// UnknownCommand is sent for unknown commands in private chats.
	UnknownCommand string
}

// Adapter is the Telegram transport and platform.
type Adapter struct {
	bot    *bot.Bot
	self   *models.User
	logger *slog.Logger
	opts   Options
	admins *adminCache

	router     *handlers.Router
	reconciler *ingest.Reconciler
}

// New creates the Telegram bot and resolves its own account.
func New(ctx context.Context, opts Options, log *slog.Logger) (*Adapter, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}

	a := &Adapter{
		logger: log.With("component", "telegram_bot"),
		opts:   opts,
	}

	b, err := bot.New(opts.Token,
		bot.WithMiddlewares(logger.Middleware(a.logger)),
		bot.WithDefaultHandler(a.handleUpdate),
	)
	if err != nil {
		a.logger.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	a.bot = b
	a.admins = newAdminCache(adminCacheTTL, a.fetchAdmins)

	a.self, err = b.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	a.logger.Info("Telegram bot instance created successfully", "bot_id", a.self.ID, "bot_username", a.self.Username)
	return a, nil
}

// Attach wires the command router and the reconciler. It must be called before Run.
func (a *Adapter) Attach(router *handlers.Router, reconciler *ingest.Reconciler) {
	a.router = router
	a.reconciler = reconciler
}

// Name implements chat.Platform.
func (a *Adapter) Name() string { return "telegram" }

// Run publishes the command list and polls for updates until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	if a.router == nil || a.reconciler == nil {
		return fmt.Errorf("telegram adapter started before Attach")
	}
	if err := a.registerCommands(ctx); err != nil {
		a.logger.Warn("Failed to publish command list", "error", err)
	}

	a.bot.Start(ctx)
	return nil
}

// registerCommands publishes the router's commands to the Telegram command menu.
func (a *Adapter) registerCommands(ctx context.Context) error {
	list := a.router.Handlers()
	commands := make([]models.BotCommand, 0, len(list))
	for _, h := range list {
		commands = append(commands, models.BotCommand{Command: h.SlashName, Description: h.Description})
	}

	if _, err := a.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	a.logger.Info("Registered Telegram commands", "count", len(commands))
	return nil
}
