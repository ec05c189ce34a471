package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/config"
	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/ingest"
	"github.com/edgard/threadscribe/internal/summary"
)

type fakeConversation struct {
	replies []string
	edits   map[string]string
}

func (c *fakeConversation) Reply(_ context.Context, text string) (string, error) {
	c.replies = append(c.replies, text)
	return fmt.Sprintf("r%d", len(c.replies)), nil
}

func (c *fakeConversation) Edit(_ context.Context, id, text string) error {
	if c.edits == nil {
		c.edits = make(map[string]string)
	}
	c.edits[id] = text
	return nil
}

func (c *fakeConversation) last() string {
	if len(c.replies) == 0 {
		return ""
	}
	return c.replies[len(c.replies)-1]
}

type fakePlatform struct {
	check   map[int64]error
	history map[int64][]*chat.Message
}

func (p *fakePlatform) Name() string { return "fake" }

func (p *fakePlatform) CheckThread(_ context.Context, id int64) error {
	if err, ok := p.check[id]; ok {
		return err
	}
	return nil
}

func (p *fakePlatform) FetchMessage(context.Context, int64, string) (*chat.Message, error) {
	return nil, chat.ErrNotFound
}

func (p *fakePlatform) History(_ context.Context, id int64, fn func(*chat.Message) error) error {
	for _, m := range p.history[id] {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

type echoBackend struct{}

func (echoBackend) Name() string { return "echo" }

func (echoBackend) GenerateSummary(_ context.Context, messages []string, _ string) (string, error) {
	return strings.Join(messages, "\n"), nil
}

type fixture struct {
	router   *Router
	store    database.Store
	platform *fakePlatform
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDB(database.DriverSQLite, filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := database.NewStore(db, logger)
	platform := &fakePlatform{check: map[int64]error{}, history: map[int64][]*chat.Message{}}
	roles := chat.NewRoleClassifier(config.DefaultDevRoles, config.DefaultModRoles)
	cfg := &config.Config{
		Messages: config.DefaultMessages,
		Summary:  config.SummaryConfig{MessageLimit: 2000},
		Bot:      config.BotConfig{DBTimeout: 5 * time.Second, ImportTimeout: time.Minute},
	}

	deps := HandlerDeps{
		Logger:     logger,
		Config:     cfg,
		Store:      store,
		Platform:   platform,
		Roles:      roles,
		Reconciler: ingest.NewReconciler(store, platform, roles, ingest.Options{Retention: 30 * 24 * time.Hour}, logger),
		Summarizer: summary.NewSummarizer(store, echoBackend{}, "prompt", time.Minute, logger),
	}
	return &fixture{router: NewRouter(deps), store: store, platform: platform}
}

var moderator = &chat.Member{Author: chat.Author{Name: "mod#1", Roles: []string{"Moderator"}}}

func (f *fixture) run(t *testing.T, prefix, text string, member *chat.Member) *fakeConversation {
	t.Helper()
	req, ok := ParseCommand(text, prefix)
	if !ok {
		t.Fatalf("ParseCommand(%q) failed", text)
	}
	conv := &fakeConversation{}
	req.Member = member
	req.Conversation = conv
	if !f.router.Dispatch(context.Background(), req) {
		t.Fatalf("Dispatch(%q) found no command", text)
	}
	return conv
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		prefix   string
		wantOK   bool
		wantCmd  string
		wantArgs []string
		wantRest string
	}{
		{name: "plain", text: "!sum beta 3d", prefix: "!", wantOK: true, wantCmd: "sum", wantArgs: []string{"beta", "3d"}, wantRest: "3d"},
		{name: "quoted", text: `!setDescription "closed beta" "Feedback on 1.2"`, prefix: "!", wantOK: true, wantCmd: "setDescription", wantArgs: []string{"closed beta", "Feedback on 1.2"}, wantRest: "Feedback on 1.2"},
		{name: "smart quotes", text: "!sum “closed beta”", prefix: "!", wantOK: true, wantCmd: "sum", wantArgs: []string{"closed beta"}},
		{name: "unquoted rest", text: "!setDescription beta  line one\nline two ", prefix: "!", wantOK: true, wantCmd: "setDescription", wantArgs: []string{"beta", "line", "one", "line", "two"}, wantRest: "line one\nline two"},
		{name: "telegram bot suffix", text: "/list_threads@scribe_bot", prefix: "/", wantOK: true, wantCmd: "list_threads"},
		{name: "no prefix", text: "sum beta", prefix: "!"},
		{name: "prefix only", text: "!", prefix: "!"},
		{name: "space after prefix", text: "! sum", prefix: "!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, ok := ParseCommand(tt.text, tt.prefix)
			if ok != tt.wantOK {
				t.Fatalf("ParseCommand() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if req.Command != tt.wantCmd {
				t.Errorf("Command = %q, want %q", req.Command, tt.wantCmd)
			}
			if strings.Join(req.Args, "|") != strings.Join(tt.wantArgs, "|") {
				t.Errorf("Args = %q, want %q", req.Args, tt.wantArgs)
			}
			if got := req.Rest(1); got != tt.wantRest {
				t.Errorf("Rest(1) = %q, want %q", got, tt.wantRest)
			}
		})
	}
}

func TestDispatchAuthorization(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	members := []struct {
		name   string
		member *chat.Member
		allow  bool
	}{
		{name: "no member", member: nil},
		{name: "regular user", member: &chat.Member{Author: chat.Author{Name: "u", Roles: []string{"Player"}}}},
		{name: "moderator", member: moderator, allow: true},
		{name: "owner", member: &chat.Member{Owner: true}, allow: true},
		{name: "manage messages", member: &chat.Member{ManageMessages: true}, allow: true},
	}
	for _, m := range members {
		conv := f.run(t, "!", "!listThreads", m.member)
		denied := conv.last() == config.DefaultMessages.NotAuthorized
		if denied == m.allow {
			t.Errorf("%s: reply %q, allowed = %v", m.name, conv.last(), m.allow)
		}
	}

	req, _ := ParseCommand("!dance", "!")
	req.Conversation = &fakeConversation{}
	if f.router.Dispatch(context.Background(), req) {
		t.Error("Dispatch() handled an unknown command")
	}
}

func TestSaveThread(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	now := time.Now().UTC()

	f.platform.check[2] = chat.ErrNotThread
	f.platform.check[3] = chat.ErrNotFound
	f.platform.check[4] = chat.ErrForbidden
	f.platform.history[100] = []*chat.Message{
		{ID: "1", Author: chat.Author{Name: "A"}, Content: "good game", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "2", Author: chat.Author{Name: "B"}, Content: "too laggy", CreatedAt: now.Add(-time.Hour)},
		{ID: "3", Author: chat.Author{Name: "bot", Self: true}, Content: "ignored", CreatedAt: now},
	}

	conv := f.run(t, "!", "!saveThread 100 beta", moderator)
	if want := "✅ Saved thread 'beta' and imported 2 messages."; conv.edits["r1"] != want {
		t.Errorf("final status = %q, want %q", conv.edits["r1"], want)
	}
	thread, err := f.store.GetThreadByNickname(context.Background(), "beta")
	if err != nil || thread == nil || thread.CreatedBy != "mod#1" {
		t.Fatalf("stored thread = %+v, %v", thread, err)
	}

	tests := []struct {
		text string
		want string
	}{
		{text: "!saveThread 101 beta", want: "❌ A thread with nickname 'beta' already exists."},
		{text: "!saveThread 100 other", want: "❌ That thread is already watched as 'beta'."},
		{text: "!saveThread abc gamma", want: "❌ Invalid thread ID or channel is not a thread."},
		{text: "!saveThread 2 gamma", want: "❌ Invalid thread ID or channel is not a thread."},
		{text: "!saveThread 3 gamma", want: "❌ Thread not found. Please check the ID."},
		{text: "!saveThread 4 gamma", want: "❌ I don't have permission to access that thread."},
		{text: "!saveThread 5", want: "Usage: `!saveThread <thread_id> \"nickname\"`"},
	}
	for _, tt := range tests {
		if got := f.run(t, "!", tt.text, moderator).last(); got != tt.want {
			t.Errorf("%s: reply = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestSumCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := f.store.CreateThread(ctx, &database.Thread{ThreadID: 7, Nickname: "beta", CreatedBy: "op"}); err != nil {
		t.Fatal(err)
	}
	for i, m := range []database.Message{
		{ThreadID: 7, Author: "A", Content: "good game", CreatedAt: now.Add(-2 * time.Hour)},
		{ThreadID: 7, Author: "B", Content: "too laggy", CreatedAt: now.Add(-time.Hour)},
	} {
		if err := f.store.SaveMessage(ctx, &m); err != nil {
			t.Fatalf("SaveMessage(%d) error = %v", i, err)
		}
	}

	conv := f.run(t, "!", "!sum beta 24h", moderator)
	if len(conv.replies) != 2 || conv.replies[0] != config.DefaultMessages.Generating {
		t.Fatalf("replies = %q", conv.replies)
	}
	if want := "📋 **Summary (last 24 hours):**\nA: good game\nB: too laggy"; conv.replies[1] != want {
		t.Errorf("summary = %q, want %q", conv.replies[1], want)
	}

	conv = f.run(t, "!", "!sum beta whenever", moderator)
	if len(conv.replies) != 3 || !strings.HasPrefix(conv.replies[1], "⚠️ Unrecognized timeframe 'whenever'") {
		t.Errorf("fallback replies = %q", conv.replies)
	}

	if got := f.run(t, "!", "!sum unknown-nickname", moderator).last(); got != "❌ No thread found with nickname 'unknown-nickname'." {
		t.Errorf("unknown nickname reply = %q", got)
	}
}

func TestThreadManagementCommands(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if got := f.run(t, "/", "/list_threads", moderator).last(); got != config.DefaultMessages.NoThreadsWatched {
		t.Errorf("empty list reply = %q", got)
	}

	for _, th := range []database.Thread{{ThreadID: 1, Nickname: "alive", CreatedBy: "op"}, {ThreadID: 2, Nickname: "gone", CreatedBy: "op"}} {
		if _, err := f.store.CreateThread(ctx, &th); err != nil {
			t.Fatal(err)
		}
	}
	f.platform.check[2] = chat.ErrNotFound

	list := f.run(t, "/", "/list_threads", moderator).last()
	if !strings.Contains(list, "🟢 **alive**") || !strings.Contains(list, "🔴 **gone**") || !strings.HasPrefix(list, "📋 **Watched Threads:**") {
		t.Errorf("list reply = %q", list)
	}

	if got := f.run(t, "!", `!setDescription alive "Patch 1.2 feedback"`, moderator).last(); got != "✅ Updated description for 'alive'." {
		t.Errorf("setDescription reply = %q", got)
	}
	thread, _ := f.store.GetThreadByNickname(ctx, "alive")
	if thread.Description.String != "Patch 1.2 feedback" {
		t.Errorf("description = %q", thread.Description.String)
	}
	if got := f.run(t, "!", "!setDescription missing text", moderator).last(); got != "❌ No thread found with nickname 'missing'." {
		t.Errorf("setDescription unknown reply = %q", got)
	}
	if got := f.run(t, "/", "/set_description alive", moderator).last(); got != "Usage: `/set_description \"nickname\" <description>`" {
		t.Errorf("setDescription usage reply = %q", got)
	}

	if got := f.run(t, "!", "!unwatch gone", moderator).last(); !strings.HasPrefix(got, "🗑️ Stopped watching 'gone'") {
		t.Errorf("unwatch reply = %q", got)
	}
	if thread, _ := f.store.GetThreadByNickname(ctx, "gone"); thread != nil {
		t.Error("unwatch left the thread in place")
	}
	if got := f.run(t, "!", "!unwatch gone", moderator).last(); got != "❌ No thread found with nickname 'gone'." {
		t.Errorf("second unwatch reply = %q", got)
	}
}

func TestHelpCommand(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	bang := f.run(t, "!", "!commands", moderator).last()
	for _, want := range []string{"📋 **Available Commands:**", "`!saveThread <thread_id> \"nickname\"`", "Example: `!sum general-feedback 3d`", "🔐 All commands require Mod or Dev role"} {
		if !strings.Contains(bang, want) {
			t.Errorf("help text missing %q", want)
		}
	}

	slash := f.run(t, "/", "/commands", moderator).last()
	if !strings.Contains(slash, "`/list_threads`") || !strings.Contains(slash, "Example: `/save_thread 123456789 general-feedback`") {
		t.Errorf("slash help text = %q", slash)
	}
}
