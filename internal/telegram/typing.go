package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Telegram clears the typing indicator after about five seconds.
const typingInterval = 4 * time.Second

// startTyping shows the typing indicator in chatID until the returned func is called.
func startTyping(ctx context.Context, b *bot.Bot, chatID int64, log *slog.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()

		for {
			_, err := b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
			if err != nil && ctx.Err() == nil {
				log.DebugContext(ctx, "Typing action failed", "chat_id", chatID, "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
