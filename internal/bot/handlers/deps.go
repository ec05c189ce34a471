package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/config"
	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/ingest"
	"github.com/edgard/threadscribe/internal/summary"
)

// HandlerDeps provides dependencies for command handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Platform   chat.Platform
	Roles      chat.RoleClassifier
	Reconciler *ingest.Reconciler
	Summarizer *summary.Summarizer
}

// dbContext bounds a store-only operation by bot.db_timeout.
func (d HandlerDeps) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.Config.Bot.DBTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.Config.Bot.DBTimeout)
}

// messageLimit is the per-message character ceiling for replies.
func (d HandlerDeps) messageLimit() int {
	if d.Config.Summary.MessageLimit <= 0 {
		return summary.DefaultMessageLimit
	}
	return d.Config.Summary.MessageLimit
}
