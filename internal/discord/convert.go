package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/edgard/threadscribe/internal/chat"
)

func (a *Adapter) toMessage(m *discordgo.Message) *chat.Message {
	return convertMessage(m, a.selfID(), a.roleNames)
}

func (a *Adapter) toAuthor(m *discordgo.Message) chat.Author {
	return convertAuthor(m, a.selfID(), a.roleNames)
}

// roleNames resolves role ids through the guild cache. Unknown ids are dropped.
func (a *Adapter) roleNames(guildID string, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if r, err := a.session.State.Role(guildID, id); err == nil {
			names = append(names, r.Name)
		}
	}
	return names
}

// member describes a command invoker's privileges.
func (a *Adapter) member(m *discordgo.Message) *chat.Member {
	if m.Author == nil {
		return nil
	}
	member := &chat.Member{Author: a.toAuthor(m)}
	if m.GuildID == "" {
		return member
	}

	if perms, err := a.session.State.MessagePermissions(m); err == nil {
		member.ManageMessages = perms&discordgo.PermissionManageMessages != 0
	} else {
		a.logger.Debug("Could not compute permissions", "channel_id", m.ChannelID, "error", err)
	}
	if g, err := a.session.State.Guild(m.GuildID); err == nil {
		member.Owner = g.OwnerID == m.Author.ID
	}
	return member
}

type roleResolver func(guildID string, ids []string) []string

func convertAuthor(m *discordgo.Message, selfID string, roles roleResolver) chat.Author {
	if m.Author == nil {
		return chat.Author{}
	}
	author := chat.Author{
		ID:   m.Author.ID,
		Name: m.Author.String(),
		Bot:  m.Author.Bot,
		Self: selfID != "" && m.Author.ID == selfID,
	}
	if m.Member != nil && m.GuildID != "" && roles != nil {
		author.Roles = roles(m.GuildID, m.Member.Roles)
	}
	return author
}

// convertMessage maps a discordgo message onto chat.Message. An inline
// referenced message becomes the resolved reference.
func convertMessage(m *discordgo.Message, selfID string, roles roleResolver) *chat.Message {
	msg := &chat.Message{
		ID:        m.ID,
		ThreadID:  parseID(m.ChannelID),
		Author:    convertAuthor(m, selfID, roles),
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.EditedTimestamp != nil {
		msg.EditedAt = *m.EditedTimestamp
	}

	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		msg.Reference = &chat.Reference{ThreadID: parseID(ref.ChannelID), MessageID: ref.MessageID}
		if m.ReferencedMessage != nil {
			msg.Reference.Resolved = convertMessage(m.ReferencedMessage, selfID, nil)
		}
	}
	return msg
}
