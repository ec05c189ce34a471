package handlers

import (
	"context"
	"fmt"
)

// NewSetDescriptionHandler returns the handler for setDescription.
func NewSetDescriptionHandler(deps HandlerDeps) HandlerFunc {
	return setDescriptionHandler{deps}.Handle
}

type setDescriptionHandler struct {
	deps HandlerDeps
}

func (h setDescriptionHandler) Handle(ctx context.Context, req *Request) error {
	log := h.deps.Logger.With("handler", "set_description")
	limit := h.deps.messageLimit()

	description := req.Rest(1)
	if len(req.Args) < 2 || description == "" {
		req.reply(ctx, log, limit, req.usage())
		return nil
	}
	nickname := req.Args[0]

	dbCtx, cancel := h.deps.dbContext(ctx)
	defer cancel()
	found, err := h.deps.Store.UpdateThreadDescription(dbCtx, nickname, description)
	if err != nil {
		return fmt.Errorf("failed to update description of %q: %w", nickname, err)
	}
	if !found {
		req.reply(ctx, log, limit, fmt.Sprintf("❌ No thread found with nickname '%s'.", nickname))
		return nil
	}

	log.InfoContext(ctx, "Thread description updated", "nickname", nickname)
	req.reply(ctx, log, limit, fmt.Sprintf("✅ Updated description for '%s'.", nickname))
	return nil
}
