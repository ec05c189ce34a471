package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/database"
)

// NewSaveThreadHandler returns the handler for saveThread.
func NewSaveThreadHandler(deps HandlerDeps) HandlerFunc {
	return saveThreadHandler{deps}.Handle
}

type saveThreadHandler struct {
	deps HandlerDeps
}

func (h saveThreadHandler) Handle(ctx context.Context, req *Request) error {
	log := h.deps.Logger.With("handler", "save_thread")
	limit := h.deps.messageLimit()
	say := func(text string) { req.reply(ctx, log, limit, text) }

	if len(req.Args) != 2 {
		say(req.usage())
		return nil
	}
	threadID, err := strconv.ParseInt(req.Args[0], 10, 64)
	if err != nil || threadID == 0 {
		say("❌ Invalid thread ID or channel is not a thread.")
		return nil
	}
	nickname := req.Args[1]

	switch err := h.deps.Platform.CheckThread(ctx, threadID); {
	case errors.Is(err, chat.ErrNotThread):
		say("❌ Invalid thread ID or channel is not a thread.")
		return nil
	case errors.Is(err, chat.ErrNotFound):
		say("❌ Thread not found. Please check the ID.")
		return nil
	case errors.Is(err, chat.ErrForbidden):
		say("❌ I don't have permission to access that thread.")
		return nil
	case err != nil:
		return fmt.Errorf("failed to check thread %d: %w", threadID, err)
	}

	dbCtx, cancel := h.deps.dbContext(ctx)
	defer cancel()
	existing, err := h.deps.Store.GetThreadByID(dbCtx, threadID)
	if err != nil {
		return fmt.Errorf("failed to look up thread %d: %w", threadID, err)
	}
	if existing != nil {
		say(fmt.Sprintf("❌ That thread is already watched as '%s'.", existing.Nickname))
		return nil
	}

	var createdBy string
	if req.Member != nil {
		createdBy = req.Member.Name
	}
	created, err := h.deps.Store.CreateThread(dbCtx, &database.Thread{
		ThreadID:  threadID,
		Nickname:  nickname,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to save thread %d: %w", threadID, err)
	}
	if !created {
		say(fmt.Sprintf("❌ A thread with nickname '%s' already exists.", nickname))
		return nil
	}
	log.InfoContext(ctx, "Thread saved", "thread_id", threadID, "nickname", nickname, "created_by", createdBy)

	h.importHistory(ctx, req, threadID, nickname)
	return nil
}

// importHistory runs the history import, reporting progress by editing one status message.
func (h saveThreadHandler) importHistory(ctx context.Context, req *Request, threadID int64, nickname string) {
	log := h.deps.Logger.With("handler", "save_thread", "thread_id", threadID)

	statusID, err := req.Conversation.Reply(ctx, h.deps.Config.Messages.ImportStarting)
	if err != nil {
		log.WarnContext(ctx, "Failed to send import status message", "error", err)
	}
	update := func(text string) {
		if statusID != "" {
			err := req.Conversation.Edit(ctx, statusID, text)
			if err == nil {
				return
			}
			log.WarnContext(ctx, "Failed to edit import status message", "error", err)
		}
		if _, err := req.Conversation.Reply(ctx, text); err != nil {
			log.ErrorContext(ctx, "Failed to send import status", "error", err)
		}
	}

	importCtx := ctx
	if timeout := h.deps.Config.Bot.ImportTimeout; timeout > 0 {
		var cancel context.CancelFunc
		importCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := h.deps.Reconciler.ImportHistory(importCtx, threadID, func(ctx context.Context, stored int) {
		if statusID == "" {
			return
		}
		text := fmt.Sprintf("📥 Importing messages... (%s processed)", humanize.Comma(int64(stored)))
		if err := req.Conversation.Edit(ctx, statusID, text); err != nil {
			log.WarnContext(ctx, "Failed to edit import progress", "error", err)
		}
	})

	switch {
	case errors.Is(err, chat.ErrHistoryUnavailable):
		update(fmt.Sprintf("✅ Saved thread '%s'. This platform does not expose message history, so only new messages will be recorded.", nickname))
	case err != nil:
		log.ErrorContext(ctx, "History import failed", "nickname", nickname, "stored", res.Stored, "error", err)
		update(fmt.Sprintf("⚠️ Thread saved but error importing messages: import stopped after %s messages.", humanize.Comma(int64(res.Stored))))
	default:
		update(fmt.Sprintf("✅ Saved thread '%s' and imported %s messages.", nickname, humanize.Comma(int64(res.Stored))))
	}
}
