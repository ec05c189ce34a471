package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/edgard/threadscribe/internal/bot/handlers"
	"github.com/edgard/threadscribe/internal/chat"
)

// logged wraps a gateway handler with the same per-event logging the
// Telegram middleware gives updates.
func logged[T any](a *Adapter, event string, fn func(ctx context.Context, s *discordgo.Session, e T)) func(*discordgo.Session, T) {
	return func(s *discordgo.Session, e T) {
		ctx := a.baseContext()
		started := time.Now()
		log := a.logger.With("event", event)

		log.DebugContext(ctx, "Processing event")
		fn(ctx, s, e)
		log.DebugContext(ctx, "Finished processing event", "duration", time.Since(started))
	}
}

func (a *Adapter) onReady(ctx context.Context, _ *discordgo.Session, r *discordgo.Ready) {
	a.logger.InfoContext(ctx, "Logged in", "user", r.User.String(), "guilds", len(r.Guilds))
}

func (a *Adapter) onMessageCreate(ctx context.Context, s *discordgo.Session, e *discordgo.MessageCreate) {
	m := e.Message
	if m.Author == nil {
		return
	}

	if strings.HasPrefix(strings.TrimSpace(m.Content), a.opts.CommandPrefix) {
		if m.Author.ID != a.selfID() && !m.Author.Bot {
			a.onCommand(ctx, s, m)
		}
		return
	}

	dbCtx, cancel := a.dbContext(ctx)
	defer cancel()
	if _, err := a.reconciler.HandleMessage(dbCtx, a.toMessage(m)); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record message", "channel_id", m.ChannelID, "message_id", m.ID, "error", err)
	}
}

func (a *Adapter) onMessageUpdate(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageUpdate) {
	m := e.Message
	// Embed unfurls arrive as updates without an author or content.
	if m == nil || m.Author == nil {
		return
	}
	if strings.HasPrefix(strings.TrimSpace(m.Content), a.opts.CommandPrefix) {
		return
	}

	var before *chat.Message
	if e.BeforeUpdate != nil {
		before = a.toMessage(e.BeforeUpdate)
	}

	dbCtx, cancel := a.dbContext(ctx)
	defer cancel()
	if _, err := a.reconciler.HandleEdit(dbCtx, before, a.toMessage(m)); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record edit", "channel_id", m.ChannelID, "message_id", m.ID, "error", err)
	}
}

func (a *Adapter) onMessageDelete(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageDelete) {
	d := chat.Deletion{ThreadID: parseID(e.ChannelID), MessageID: e.ID}
	if before := e.BeforeDelete; before != nil && before.Author != nil {
		author := a.toAuthor(before)
		d.Author = &author
		d.CreatedAt = before.Timestamp
	}
	a.delete(ctx, d)
}

func (a *Adapter) onMessageDeleteBulk(ctx context.Context, _ *discordgo.Session, e *discordgo.MessageDeleteBulk) {
	threadID := parseID(e.ChannelID)
	for _, id := range e.Messages {
		a.delete(ctx, chat.Deletion{ThreadID: threadID, MessageID: id})
	}
}

func (a *Adapter) delete(ctx context.Context, d chat.Deletion) {
	dbCtx, cancel := a.dbContext(ctx)
	defer cancel()
	if _, err := a.reconciler.HandleDelete(dbCtx, d); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record delete", "thread_id", d.ThreadID, "message_id", d.MessageID, "error", err)
	}
}

func (a *Adapter) onCommand(ctx context.Context, s *discordgo.Session, m *discordgo.Message) {
	req, ok := handlers.ParseCommand(m.Content, a.opts.CommandPrefix)
	if !ok {
		return
	}
	req.Member = a.member(m)
	req.Conversation = &conversation{session: s, message: m}

	if err := s.ChannelTyping(m.ChannelID, discordgo.WithContext(ctx)); err != nil {
		a.logger.DebugContext(ctx, "Typing indicator failed", "channel_id", m.ChannelID, "error", err)
	}
	if !a.router.Dispatch(ctx, req) {
		a.logger.DebugContext(ctx, "Ignoring unknown command", "command", req.Command, "author", m.Author.String())
	}
}

// conversation replies to the command message.
type conversation struct {
	session *discordgo.Session
	message *discordgo.Message
}

func (c *conversation) Reply(ctx context.Context, text string) (string, error) {
	sent, err := c.session.ChannelMessageSendReply(c.message.ChannelID, text, c.message.Reference(), discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return sent.ID, nil
}

func (c *conversation) Edit(ctx context.Context, messageID, text string) error {
	_, err := c.session.ChannelMessageEdit(c.message.ChannelID, messageID, text, discordgo.WithContext(ctx))
	return err
}
