package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/threadscribe/internal/bot/handlers"
)

// handleUpdate is the default handler: commands go to the router, everything
// else in a chat goes to the reconciler.
func (a *Adapter) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.Message != nil:
		a.onMessage(ctx, update.Message)
	case update.EditedMessage != nil:
		a.onEdit(ctx, update.EditedMessage)
	}
}

func (a *Adapter) onMessage(ctx context.Context, msg *models.Message) {
	if strings.HasPrefix(strings.TrimSpace(msg.Text), CommandPrefix) {
		a.onCommand(ctx, msg)
		return
	}

	m := toMessage(msg, a.self.ID, a.authorRoles(ctx, msg))
	dbCtx, cancel := a.dbContext(ctx)
	defer cancel()
	if _, err := a.reconciler.HandleMessage(dbCtx, m); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record message", "chat_id", msg.Chat.ID, "message_id", msg.ID, "error", err)
	}
}

func (a *Adapter) onEdit(ctx context.Context, msg *models.Message) {
	if strings.HasPrefix(strings.TrimSpace(msg.Text), CommandPrefix) {
		return
	}

	m := toMessage(msg, a.self.ID, a.authorRoles(ctx, msg))
	dbCtx, cancel := a.dbContext(ctx)
	defer cancel()
	if _, err := a.reconciler.HandleEdit(dbCtx, nil, m); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record edit", "chat_id", msg.Chat.ID, "message_id", msg.ID, "error", err)
	}
}

func (a *Adapter) onCommand(ctx context.Context, msg *models.Message) {
	if !a.addressedToUs(msg.Text) {
		return
	}
	req, ok := handlers.ParseCommand(msg.Text, CommandPrefix)
	if !ok {
		return
	}
	req.Member = a.member(ctx, msg)
	conv := &conversation{bot: a.bot, chatID: msg.Chat.ID, replyTo: msg.ID}
	req.Conversation = conv

	stopTyping := startTyping(ctx, a.bot, msg.Chat.ID, a.logger)
	handled := a.router.Dispatch(ctx, req)
	stopTyping()

	if !handled && string(msg.Chat.Type) == "private" {
		if _, err := conv.Reply(ctx, a.opts.UnknownCommand); err != nil {
			a.logger.WarnContext(ctx, "Failed to reply to unknown command", "chat_id", msg.Chat.ID, "error", err)
		}
	}
}

// addressedToUs rejects /command@otherbot, which group chats deliver to every bot.
func (a *Adapter) addressedToUs(text string) bool {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	_, target, found := strings.Cut(name, "@")
	return !found || strings.EqualFold(target, a.self.Username)
}

// authorRoles returns the sender's custom title when it is a chat administrator.
func (a *Adapter) authorRoles(ctx context.Context, msg *models.Message) []string {
	if msg.From == nil || msg.From.IsBot {
		return nil
	}
	if m, ok := a.admins.get(ctx, msg.Chat.ID, msg.From.ID); ok {
		return m.Roles
	}
	return nil
}

func (a *Adapter) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.opts.DBTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.opts.DBTimeout)
}

// conversation replies in the chat a command was sent to.
type conversation struct {
	bot     *bot.Bot
	chatID  int64
	replyTo int
}

func (c *conversation) Reply(ctx context.Context, text string) (string, error) {
	sent, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          c.chatID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: c.replyTo, AllowSendingWithoutReply: true},
	})
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.ID), nil
}

func (c *conversation) Edit(ctx context.Context, messageID, text string) error {
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return err
	}
	_, err = c.bot.EditMessageText(ctx, &bot.EditMessageTextParams{ChatID: c.chatID, MessageID: id, Text: text})
	return err
}
