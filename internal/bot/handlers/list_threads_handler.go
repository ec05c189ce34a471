package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// NewListThreadsHandler returns the handler for listThreads.
func NewListThreadsHandler(deps HandlerDeps) HandlerFunc {
	return listThreadsHandler{deps}.Handle
}

type listThreadsHandler struct {
	deps HandlerDeps
}

func (h listThreadsHandler) Handle(ctx context.Context, req *Request) error {
	log := h.deps.Logger.With("handler", "list_threads")

	dbCtx, cancel := h.deps.dbContext(ctx)
	threads, err := h.deps.Store.ListThreads(dbCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to list threads: %w", err)
	}
	if len(threads) == 0 {
		req.reply(ctx, log, h.deps.messageLimit(), h.deps.Config.Messages.NoThreadsWatched)
		return nil
	}

	var sb strings.Builder
	sb.WriteString("📋 **Watched Threads:**\n")
	for _, t := range threads {
		status := "🟢"
		if err := h.deps.Platform.CheckThread(ctx, t.ThreadID); err != nil {
			log.DebugContext(ctx, "Thread is not reachable", "thread_id", t.ThreadID, "error", err)
			status = "🔴"
		}

		dbCtx, cancel := h.deps.dbContext(ctx)
		count, err := h.deps.Store.CountMessages(dbCtx, t.ThreadID)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to count messages for %q: %w", t.Nickname, err)
		}

		fmt.Fprintf(&sb, "\n%s **%s**\n", status, t.Nickname)
		fmt.Fprintf(&sb, "  • ID: %d\n", t.ThreadID)
		fmt.Fprintf(&sb, "  • Created by: %s\n", t.CreatedBy)
		fmt.Fprintf(&sb, "  • Created at: %s\n", t.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&sb, "  • Stored messages: %s\n", humanize.Comma(count))
		if t.Description.Valid && t.Description.String != "" {
			fmt.Fprintf(&sb, "  • Description: %s\n", t.Description.String)
		}
	}

	req.reply(ctx, log, h.deps.messageLimit(), sb.String())
	return nil
}
