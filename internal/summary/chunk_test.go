package summary

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	header := Header("last 3 days")
	tests := []struct {
		name       string
		text       string
		limit      int
		wantChunks int
	}{
		{name: "empty summary", text: "", limit: 2000, wantChunks: 1},
		{name: "fits in first chunk", text: "short summary", limit: 2000, wantChunks: 1},
		{name: "exactly fills first chunk", text: strings.Repeat("a", 2000-utf8.RuneCountInString(header)), limit: 2000, wantChunks: 1},
		{name: "one past first chunk", text: strings.Repeat("a", 2001-utf8.RuneCountInString(header)), limit: 2000, wantChunks: 2},
		{name: "long ascii", text: strings.Repeat("lorem ipsum ", 700), limit: 2000, wantChunks: 5},
		{name: "multibyte runes", text: strings.Repeat("ção 🎮 ", 900), limit: 500, wantChunks: 12},
		{name: "small limit", text: strings.Repeat("x", 1000), limit: 100, wantChunks: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chunks, err := Split(header, tt.text, tt.limit)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(chunks) != tt.wantChunks {
				t.Errorf("Split() returned %d chunks, want %d", len(chunks), tt.wantChunks)
			}

			var rebuilt strings.Builder
			for i, c := range chunks {
				if n := utf8.RuneCountInString(c.String()); n > tt.limit {
					t.Errorf("chunk %d has %d characters, limit %d", i, n, tt.limit)
				}
				wantPrefix := ContinuationMarker
				if i == 0 {
					wantPrefix = header
				}
				if c.Prefix != wantPrefix {
					t.Errorf("chunk %d prefix = %q, want %q", i, c.Prefix, wantPrefix)
				}
				if i > 0 && c.Body == "" {
					t.Errorf("chunk %d is empty", i)
				}
				rebuilt.WriteString(c.Body)
			}
			if rebuilt.String() != tt.text {
				t.Error("joined chunk bodies differ from the input")
			}
		})
	}
}

func TestSplitLimitTooSmall(t *testing.T) {
	t.Parallel()
	if _, err := Split(Header("last 24 hours"), "text", 10); err == nil {
		t.Error("Split() with a limit below the header length succeeded")
	}
}
