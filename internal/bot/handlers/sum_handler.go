package handlers

import (
	"context"
	"fmt"
)

// NewSumHandler returns the handler for sum.
func NewSumHandler(deps HandlerDeps) HandlerFunc {
	return sumHandler{deps}.Handle
}

type sumHandler struct {
	deps HandlerDeps
}

func (h sumHandler) Handle(ctx context.Context, req *Request) error {
	log := h.deps.Logger.With("handler", "sum")
	limit := h.deps.messageLimit()

	if len(req.Args) < 1 {
		req.reply(ctx, log, limit, req.usage())
		return nil
	}
	nickname := req.Args[0]
	var token string
	if len(req.Args) > 1 {
		token = req.Args[1]
	}

	dbCtx, cancel := h.deps.dbContext(ctx)
	thread, err := h.deps.Store.GetThreadByNickname(dbCtx, nickname)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to look up thread %q: %w", nickname, err)
	}
	if thread == nil {
		req.reply(ctx, log, limit, fmt.Sprintf("❌ No thread found with nickname '%s'.", nickname))
		return nil
	}

	req.reply(ctx, log, limit, h.deps.Config.Messages.Generating)

	res, err := h.deps.Summarizer.Summarize(ctx, thread, token, "")
	if err != nil {
		return fmt.Errorf("failed to summarize %q: %w", nickname, err)
	}
	if res.Window.Fallback {
		req.reply(ctx, log, limit, fmt.Sprintf("⚠️ Unrecognized timeframe '%s', using the %s.", res.Window.Requested, res.Window.Describe()))
	}

	if res.Failed {
		req.reply(ctx, log, limit, "❌ "+res.Text)
		return nil
	}

	chunks, err := res.Chunks(limit)
	if err != nil {
		return fmt.Errorf("failed to split summary: %w", err)
	}
	for _, c := range chunks {
		if _, err := req.Conversation.Reply(ctx, c.String()); err != nil {
			log.ErrorContext(ctx, "Failed to deliver summary chunk", "nickname", nickname, "error", err)
			return nil
		}
	}

	log.InfoContext(ctx, "Summary delivered", "nickname", nickname, "timeframe", res.Window.Token, "messages", res.MessageCount, "chunks", len(chunks))
	return nil
}
