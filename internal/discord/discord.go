// Package discord connects threadscribe to Discord through discordgo. Watched
// threads are Discord thread channels; messages, edits and deletes in them are
// recorded, and prefixed messages anywhere the bot can read are commands.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/threadscribe/internal/bot/handlers"
	"github.com/edgard/threadscribe/internal/ingest"
)

// Intents the bot needs: guild metadata for roles and threads, guild
// messages, and their content.
const intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

// Options configures the adapter.
type Options struct {
	Token         string
	CommandPrefix string
	// StateMaxMessages is how many messages per channel discordgo caches, so
	// edits and deletes can report the earlier content and author.
	StateMaxMessages int
	// HistoryPageMax is the page size used when walking a thread's history.
	HistoryPageMax int
	// DBTimeout bounds the store work done for one gateway event.
	DBTimeout time.Duration
}

// Adapter is the Discord transport and platform.
type Adapter struct {
	session *discordgo.Session
	logger  *slog.Logger
	opts    Options

	router     *handlers.Router
	reconciler *ingest.Reconciler

	mu sync.RWMutex
	// ctx is the Run context; gateway callbacks have none of their own.
	ctx context.Context
}

// New creates the Discord session. It does not connect until Run.
func New(opts Options, logger *slog.Logger) (*Adapter, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("discord bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HistoryPageMax <= 0 || opts.HistoryPageMax > 100 {
		opts.HistoryPageMax = 100
	}

	s, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = intents
	s.State.MaxMessageCount = opts.StateMaxMessages

	a := &Adapter{
		session: s,
		logger:  logger.With("component", "discord_bot"),
		opts:    opts,
		ctx:     context.Background(),
	}
	s.AddHandler(logged(a, "ready", a.onReady))
	s.AddHandler(logged(a, "message_create", a.onMessageCreate))
	s.AddHandler(logged(a, "message_update", a.onMessageUpdate))
	s.AddHandler(logged(a, "message_delete", a.onMessageDelete))
	s.AddHandler(logged(a, "message_delete_bulk", a.onMessageDeleteBulk))
	return a, nil
}

// Attach wires the command router and the reconciler. It must be called before Run.
func (a *Adapter) Attach(router *handlers.Router, reconciler *ingest.Reconciler) {
	a.router = router
	a.reconciler = reconciler
}

// Name implements chat.Platform.
func (a *Adapter) Name() string { return "discord" }

// Run connects to the gateway and serves events until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	if a.router == nil || a.reconciler == nil {
		return fmt.Errorf("discord adapter started before Attach")
	}

	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	a.logger.Info("Discord gateway connected")

	<-ctx.Done()

	if err := a.session.Close(); err != nil {
		a.logger.Error("Error closing discord gateway", "error", err)
	}
	a.logger.Info("Discord gateway closed")
	return nil
}

func (a *Adapter) baseContext() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

func (a *Adapter) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.DBTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.opts.DBTimeout)
}

func (a *Adapter) selfID() string {
	if u := a.session.State.User; u != nil {
		return u.ID
	}
	return ""
}

// parseID converts a snowflake; zero means not a valid id.
func parseID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
