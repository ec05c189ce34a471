package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/edgard/threadscribe/internal/chat"
)

func TestParseLogLine(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 10, 16, 14, 25, 30, 0, time.UTC)

	testGroups := map[string][]struct {
		name   string
		line   string
		want   LogEntry
		wantOK bool
	}{
		"valid": {
			{
				name:   "plain",
				line:   "[2025-10-16 14:25:30 UTC] alice: hello there",
				want:   LogEntry{Timestamp: at, Author: "alice", Content: "hello there"},
				wantOK: true,
			},
			{
				name:   "role prefix",
				line:   "[2025-10-16 14:25:30 UTC] [Mod] alice: hello",
				want:   LogEntry{Timestamp: at, Author: "alice", Role: "Mod", Content: "hello"},
				wantOK: true,
			},
			{
				name:   "reply with timestamp",
				line:   "[2025-10-16 14:25:30 UTC] alice (reply to bob (2025-10-16 14:20:00)): sure",
				want:   LogEntry{Timestamp: at, Author: "alice", ReplyTo: "bob (2025-10-16 14:20:00)", Content: "sure"},
				wantOK: true,
			},
			{
				name:   "edited marker",
				line:   "[2025-10-16 14:25:30 UTC] [Dev] alice: fixed typo  [edited]",
				want:   LogEntry{Timestamp: at, Author: "alice", Role: "Dev", Content: "fixed typo", Edited: true},
				wantOK: true,
			},
			{
				name:   "content with colon",
				line:   "[2025-10-16 14:25:30 UTC] alice: note: read this",
				want:   LogEntry{Timestamp: at, Author: "alice", Content: "note: read this"},
				wantOK: true,
			},
			{
				name:   "zone-less timestamp",
				line:   "[2025-10-16 14:25:30] alice: hi",
				want:   LogEntry{Timestamp: at, Author: "alice", Content: "hi"},
				wantOK: true,
			},
		},
		"invalid": {
			{name: "empty", line: ""},
			{name: "no brackets", line: "alice: hello"},
			{name: "bad timestamp", line: "[yesterday] alice: hello"},
			{name: "missing author", line: "[2025-10-16 14:25:30 UTC] : hello"},
		},
	}

	for group, tests := range testGroups {
		for _, tt := range tests {
			t.Run(group+"/"+tt.name, func(t *testing.T) {
				t.Parallel()
				got, ok := ParseLogLine(tt.line, nil)
				if ok != tt.wantOK {
					t.Fatalf("ParseLogLine(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
				}
				if !ok {
					return
				}
				if !got.Timestamp.Equal(tt.want.Timestamp) {
					t.Errorf("Timestamp = %v, want %v", got.Timestamp, tt.want.Timestamp)
				}
				got.Timestamp, tt.want.Timestamp = time.Time{}, time.Time{}
				if got != tt.want {
					t.Errorf("ParseLogLine(%q) = %+v, want %+v", tt.line, got, tt.want)
				}
			})
		}
	}
}

func TestParseLogLineLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EDT", -4*60*60)
	got, ok := ParseLogLine("[2025-10-16 10:25:30 EDT] alice: hi", loc)
	if !ok {
		t.Fatal("ParseLogLine() failed")
	}
	want := time.Date(2025, 10, 16, 14, 25, 30, 0, time.UTC)
	if !got.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp.UTC(), want)
	}
}

func TestImportLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	log := strings.Join([]string{
		"[2025-10-16 13:00:00 UTC] [Mod] alice: first",
		"not a log line",
		"",
		"[2025-10-16 13:05:00 UTC] bob (reply to alice (2025-10-16 13:00:00)): second  [edited]",
		"[2025-08-01 13:05:00 UTC] bob: too old",
		"[2025-10-16 13:10:00 UTC] [Developer] carol: third",
	}, "\n")

	r, store := newTestReconciler(t, nil, Options{Retention: 30 * 24 * time.Hour})

	res, err := r.ImportLog(ctx, testThread, strings.NewReader(log), nil)
	if err != nil {
		t.Fatalf("ImportLog() error = %v", err)
	}
	if res.Stored != 3 || res.Skipped != 1 || res.Expired != 1 {
		t.Errorf("ImportLog() = %+v", res)
	}

	rows := storedMessages(t, store)
	if len(rows) != 3 {
		t.Fatalf("stored %d messages, want 3", len(rows))
	}
	if rows[0].Role.String != chat.RoleMod || rows[2].Role.String != chat.RoleDev {
		t.Errorf("roles = %q, %q", rows[0].Role.String, rows[2].Role.String)
	}
	if !rows[1].Edited || rows[1].ReplyTo.String != "alice (2025-10-16 13:00:00)" {
		t.Errorf("reply row = %+v", rows[1])
	}

	again, err := r.ImportLog(ctx, testThread, strings.NewReader(log), nil)
	if err != nil {
		t.Fatalf("second ImportLog() error = %v", err)
	}
	if again.Stored != 0 || again.Duplicates != 3 {
		t.Errorf("re-import = %+v, want only duplicates", again)
	}

	if _, err := r.ImportLog(ctx, 1, strings.NewReader(log), nil); err == nil {
		t.Error("ImportLog() into an unwatched thread succeeded")
	}
}
