package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/threadscribe/internal/chat"
)

const adminCacheTTL = 10 * time.Minute

// CheckThread accepts group and supergroup chats the bot can see.
func (a *Adapter) CheckThread(ctx context.Context, threadID int64) error {
	info, err := a.bot.GetChat(ctx, &bot.GetChatParams{ChatID: threadID})
	if err != nil {
		return mapError(err)
	}
	switch string(info.Type) {
	case "group", "supergroup":
		return nil
	default:
		return chat.ErrNotThread
	}
}

// FetchMessage is not offered by the Bot API.
func (a *Adapter) FetchMessage(context.Context, int64, string) (*chat.Message, error) {
	return nil, chat.ErrHistoryUnavailable
}

// History is not offered by the Bot API.
func (a *Adapter) History(context.Context, int64, func(*chat.Message) error) error {
	return chat.ErrHistoryUnavailable
}

func mapError(err error) error {
	switch {
	case errors.Is(err, bot.ErrorForbidden):
		return fmt.Errorf("%w: %w", chat.ErrForbidden, err)
	case errors.Is(err, bot.ErrorNotFound), errors.Is(err, bot.ErrorBadRequest):
		return fmt.Errorf("%w: %w", chat.ErrNotFound, err)
	default:
		return err
	}
}

// displayName is the author string stored with messages.
func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	return nameOf(u.ID, u.Username, u.FirstName, u.LastName)
}

func nameOf(id int64, username, first, last string) string {
	if username != "" {
		return username
	}
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	return strconv.FormatInt(id, 10)
}

// toMessage converts a Telegram message. roles are the author's role names.
func toMessage(msg *models.Message, selfID int64, roles []string) *chat.Message {
	m := &chat.Message{
		ID:        strconv.Itoa(msg.ID),
		ThreadID:  msg.Chat.ID,
		Content:   messageText(msg),
		CreatedAt: time.Unix(int64(msg.Date), 0).UTC(),
	}
	if msg.EditDate != 0 {
		m.EditedAt = time.Unix(int64(msg.EditDate), 0).UTC()
	}
	if msg.From != nil {
		m.Author = chat.Author{
			ID:    strconv.FormatInt(msg.From.ID, 10),
			Name:  displayName(msg.From),
			Bot:   msg.From.IsBot,
			Self:  msg.From.ID == selfID,
			Roles: roles,
		}
	}
	if ref := msg.ReplyToMessage; ref != nil {
		m.Reference = &chat.Reference{
			ThreadID:  ref.Chat.ID,
			MessageID: strconv.Itoa(ref.ID),
			Resolved:  toMessage(ref, selfID, nil),
		}
	}
	return m
}

func messageText(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

// toMember converts an administrator entry. The custom title doubles as the
// role name, so titles such as "Mod" or "Dev" classify like Discord roles.
func toMember(m models.ChatMember) (int64, chat.Member, bool) {
	switch {
	case m.Owner != nil:
		o := m.Owner
		member := chat.Member{
			Author: chat.Author{
				ID:   strconv.FormatInt(o.User.ID, 10),
				Name: nameOf(o.User.ID, o.User.Username, o.User.FirstName, o.User.LastName),
			},
			Owner: true,
		}
		if o.CustomTitle != "" {
			member.Roles = []string{o.CustomTitle}
		}
		return o.User.ID, member, true
	case m.Administrator != nil:
		ad := m.Administrator
		member := chat.Member{
			Author: chat.Author{
				ID:   strconv.FormatInt(ad.User.ID, 10),
				Name: nameOf(ad.User.ID, ad.User.Username, ad.User.FirstName, ad.User.LastName),
				Bot:  ad.User.IsBot,
			},
			ManageMessages: ad.CanDeleteMessages,
		}
		if ad.CustomTitle != "" {
			member.Roles = []string{ad.CustomTitle}
		}
		return ad.User.ID, member, true
	default:
		return 0, chat.Member{}, false
	}
}

func (a *Adapter) fetchAdmins(ctx context.Context, chatID int64) (map[int64]chat.Member, error) {
	list, err := a.bot.GetChatAdministrators(ctx, &bot.GetChatAdministratorsParams{ChatID: chatID})
	if err != nil {
		return nil, mapError(err)
	}
	admins := make(map[int64]chat.Member, len(list))
	for _, m := range list {
		if id, member, ok := toMember(m); ok {
			admins[id] = member
		}
	}
	return admins, nil
}

// member describes the sender of msg, consulting the chat's administrators.
func (a *Adapter) member(ctx context.Context, msg *models.Message) *chat.Member {
	if msg.From == nil {
		return nil
	}
	if m, ok := a.admins.get(ctx, msg.Chat.ID, msg.From.ID); ok {
		return &m
	}
	return &chat.Member{Author: chat.Author{
		ID:   strconv.FormatInt(msg.From.ID, 10),
		Name: displayName(msg.From),
		Bot:  msg.From.IsBot,
	}}
}

type adminEntry struct {
	fetched time.Time
	members map[int64]chat.Member
}

// adminCache keeps each chat's administrator list for ttl. Failed lookups are
// cached as empty lists so a private chat is not queried on every message.
type adminCache struct {
	ttl   time.Duration
	fetch func(ctx context.Context, chatID int64) (map[int64]chat.Member, error)
	now   func() time.Time

	mu    sync.Mutex
	chats map[int64]adminEntry
}

func newAdminCache(ttl time.Duration, fetch func(context.Context, int64) (map[int64]chat.Member, error)) *adminCache {
	return &adminCache{ttl: ttl, fetch: fetch, now: time.Now, chats: make(map[int64]adminEntry)}
}

func (c *adminCache) get(ctx context.Context, chatID, userID int64) (chat.Member, bool) {
	c.mu.Lock()
	entry, ok := c.chats[chatID]
	c.mu.Unlock()

	if !ok || c.now().Sub(entry.fetched) > c.ttl {
		members, err := c.fetch(ctx, chatID)
		if err != nil {
			members = nil
		}
		entry = adminEntry{fetched: c.now(), members: members}
		c.mu.Lock()
		c.chats[chatID] = entry
		c.mu.Unlock()
	}

	m, ok := entry.members[userID]
	return m, ok
}
