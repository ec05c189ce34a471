package timeframe

import (
	"fmt"
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

	type resolveCase struct {
		name      string
		token     string
		wantSpan  time.Duration
		wantToken string
		fallback  bool
		clamped   bool
	}

	testGroups := map[string][]resolveCase{
		"Valid tokens": {
			{name: "hours", token: "6h", wantSpan: 6 * time.Hour, wantToken: "6h"},
			{name: "days", token: "3d", wantSpan: 72 * time.Hour, wantToken: "3d"},
			{name: "weeks", token: "1w", wantSpan: 7 * 24 * time.Hour, wantToken: "1w"},
			{name: "upper case unit", token: "2D", wantSpan: 48 * time.Hour, wantToken: "2d"},
			{name: "surrounding whitespace", token: "  12h ", wantSpan: 12 * time.Hour, wantToken: "12h"},
			{name: "exactly thirty days", token: "30d", wantSpan: MaxSpan, wantToken: "30d"},
		},
		"Clamping": {
			{name: "too many days", token: "45d", wantSpan: MaxSpan, wantToken: "30d", clamped: true},
			{name: "too many weeks", token: "5w", wantSpan: MaxSpan, wantToken: "30d", clamped: true},
			{name: "too many hours", token: "721h", wantSpan: MaxSpan, wantToken: "30d", clamped: true},
			{name: "overflowing magnitude", token: "99999999999999999999999h", wantSpan: MaxSpan, wantToken: "30d", clamped: true},
		},
		"Fallback": {
			{name: "absent", token: "", wantSpan: 24 * time.Hour, wantToken: "24h"},
			{name: "unknown unit", token: "3m", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "no unit", token: "12", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "non numeric", token: "xd", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "negative", token: "-3d", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "fraction", token: "1.5d", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "word", token: "yesterday", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "unit only", token: "h", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "zero hours", token: "0h", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
			{name: "zero days padded", token: "000d", wantSpan: 24 * time.Hour, wantToken: "24h", fallback: true},
		},
	}

	for groupName, cases := range testGroups {
		t.Run(groupName, func(t *testing.T) {
			t.Parallel()
			for _, tc := range cases {
				t.Run(tc.name, func(t *testing.T) {
					t.Parallel()
					w := Resolve(tc.token, now)
					if w.Span != tc.wantSpan {
						t.Errorf("Span = %v, want %v", w.Span, tc.wantSpan)
					}
					if w.Token != tc.wantToken {
						t.Errorf("Token = %q, want %q", w.Token, tc.wantToken)
					}
					if w.Fallback != tc.fallback || w.Clamped != tc.clamped {
						t.Errorf("Fallback/Clamped = %v/%v, want %v/%v", w.Fallback, w.Clamped, tc.fallback, tc.clamped)
					}
					if !w.End.Equal(now) || !w.Start.Equal(now.Add(-tc.wantSpan)) {
						t.Errorf("window = [%v, %v]", w.Start, w.End)
					}
					if w.Requested != tc.token {
						t.Errorf("Requested = %q, want %q", w.Requested, tc.token)
					}
				})
			}
		})
	}
}

func TestResolveSpanProperty(t *testing.T) {
	t.Parallel()
	now := time.Now()
	units := map[string]time.Duration{"h": time.Hour, "d": 24 * time.Hour, "w": 7 * 24 * time.Hour}

	for unit, d := range units {
		for n := 1; n <= 800; n += 7 {
			token := fmt.Sprintf("%d%s", n, unit)
			want := min(time.Duration(n)*d, MaxSpan)
			if got := Resolve(token, now).Span; got != want {
				t.Errorf("Resolve(%q).Span = %v, want %v", token, got, want)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		span time.Duration
		want string
	}{
		{span: 24 * time.Hour, want: "last 24 hours"},
		{span: time.Hour, want: "last hour"},
		{span: 6 * time.Hour, want: "last 6 hours"},
		{span: 36 * time.Hour, want: "last 36 hours"},
		{span: 3 * 24 * time.Hour, want: "last 3 days"},
		{span: 7 * 24 * time.Hour, want: "last week"},
		{span: 14 * 24 * time.Hour, want: "last 14 days"},
		{span: MaxSpan, want: "last 30 days"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := Format(tt.span); got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", tt.span, got, tt.want)
			}
		})
	}

	if got := Resolve("", time.Now()).Describe(); got != "last 24 hours" {
		t.Errorf("default Describe() = %q", got)
	}
}
