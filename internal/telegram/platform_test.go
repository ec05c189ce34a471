package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/threadscribe/internal/chat"
)

func TestToMessage(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 10, 16, 14, 0, 0, 0, time.UTC)
	msg := &models.Message{
		ID:       77,
		Date:     int(created.Unix()),
		EditDate: int(created.Add(time.Minute).Unix()),
		Chat:     models.Chat{ID: -1001},
		From:     &models.User{ID: 5, FirstName: "Ana", LastName: "Silva"},
		Text:     "lag spikes in ranked",
		ReplyToMessage: &models.Message{
			ID:   70,
			Date: int(created.Add(-time.Hour).Unix()),
			Chat: models.Chat{ID: -1001},
			From: &models.User{ID: 9, Username: "scribe_bot", IsBot: true},
			Text: "earlier",
		},
	}

	m := toMessage(msg, 9, []string{"Mod"})
	if m.ID != "77" || m.ThreadID != -1001 || m.Content != "lag spikes in ranked" {
		t.Errorf("toMessage() = %+v", m)
	}
	if !m.CreatedAt.Equal(created) || !m.EditedAt.Equal(created.Add(time.Minute)) {
		t.Errorf("times = %v / %v", m.CreatedAt, m.EditedAt)
	}
	if m.Author.Name != "Ana Silva" || m.Author.Self || len(m.Author.Roles) != 1 {
		t.Errorf("author = %+v", m.Author)
	}
	ref := m.Reference
	if ref == nil || ref.MessageID != "70" || ref.Resolved == nil || !ref.Resolved.Author.Self || ref.Resolved.Author.Name != "scribe_bot" {
		t.Errorf("reference = %+v", ref)
	}

	caption := toMessage(&models.Message{ID: 1, Chat: models.Chat{ID: 1}, Caption: "screenshot of the bug"}, 9, nil)
	if caption.Content != "screenshot of the bug" || !caption.EditedAt.IsZero() {
		t.Errorf("caption message = %+v", caption)
	}
}

func TestNameOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                  string
		username, first, last string
		want                  string
	}{
		{name: "username wins", username: "ana", first: "Ana", want: "ana"},
		{name: "full name", first: "Ana", last: "Silva", want: "Ana Silva"},
		{name: "first only", first: "Ana", want: "Ana"},
		{name: "id fallback", want: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := nameOf(42, tt.username, tt.first, tt.last); got != tt.want {
				t.Errorf("nameOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdminCache(t *testing.T) {
	t.Parallel()

	calls := 0
	fail := false
	fetch := func(_ context.Context, chatID int64) (map[int64]chat.Member, error) {
		calls++
		if fail {
			return nil, errors.New("bad request: there are no administrators in the private chat")
		}
		return map[int64]chat.Member{7: {Author: chat.Author{Name: "mod", Roles: []string{"Mod"}}, ManageMessages: true}}, nil
	}

	now := time.Date(2025, 10, 16, 0, 0, 0, 0, time.UTC)
	c := newAdminCache(time.Minute, fetch)
	c.now = func() time.Time { return now }

	if m, ok := c.get(context.Background(), 1, 7); !ok || !m.ManageMessages {
		t.Errorf("get(admin) = %+v, %v", m, ok)
	}
	if _, ok := c.get(context.Background(), 1, 8); ok {
		t.Error("get(non-admin) found a member")
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1 while cached", calls)
	}

	now = now.Add(2 * time.Minute)
	fail = true
	if _, ok := c.get(context.Background(), 1, 7); ok {
		t.Error("get() after failed refresh still found the admin")
	}
	if _, ok := c.get(context.Background(), 1, 7); ok || calls != 2 {
		t.Errorf("failed refresh was not cached: calls = %d", calls)
	}
}

func TestAddressedToUs(t *testing.T) {
	t.Parallel()

	a := &Adapter{self: &models.User{ID: 1, Username: "Scribe_Bot"}}
	tests := map[string]bool{
		"/sum beta 3d":             true,
		"/sum@scribe_bot beta":     true,
		"/list_threads@other_bot":  false,
		"  /commands@SCRIBE_BOT  ": true,
	}
	for text, want := range tests {
		if got := a.addressedToUs(text); got != want {
			t.Errorf("addressedToUs(%q) = %v, want %v", text, got, want)
		}
	}
}
