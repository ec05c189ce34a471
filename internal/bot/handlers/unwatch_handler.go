package handlers

import (
	"context"
	"fmt"
)

// NewUnwatchHandler returns the handler for unwatch.
func NewUnwatchHandler(deps HandlerDeps) HandlerFunc {
	return unwatchHandler{deps}.Handle
}

type unwatchHandler struct {
	deps HandlerDeps
}

func (h unwatchHandler) Handle(ctx context.Context, req *Request) error {
	log := h.deps.Logger.With("handler", "unwatch")
	limit := h.deps.messageLimit()

	if len(req.Args) != 1 {
		req.reply(ctx, log, limit, req.usage())
		return nil
	}
	nickname := req.Args[0]

	dbCtx, cancel := h.deps.dbContext(ctx)
	defer cancel()
	deleted, err := h.deps.Store.DeleteThread(dbCtx, nickname)
	if err != nil {
		return fmt.Errorf("failed to delete thread %q: %w", nickname, err)
	}
	if !deleted {
		req.reply(ctx, log, limit, fmt.Sprintf("❌ No thread found with nickname '%s'.", nickname))
		return nil
	}

	log.InfoContext(ctx, "Stopped watching thread", "nickname", nickname)
	req.reply(ctx, log, limit, fmt.Sprintf("🗑️ Stopped watching '%s' and deleted its stored messages.", nickname))
	return nil
}
