// Package timeframe turns short duration tokens such as "24h", "3d" or "1w"
// into concrete time windows, and renders windows back as phrases.
package timeframe

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultToken is applied when no token is given or the token is rejected.
	DefaultToken = "24h"
	// MaxSpan caps every window.
	MaxSpan = 30 * 24 * time.Hour

	week     = 7 * 24 * time.Hour
	maxToken = "30d"
)

var tokenPattern = regexp.MustCompile(`^(\d+)([hdw])$`)

var unitDurations = map[string]time.Duration{
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": week,
}

// Window is a resolved [Start, End] interval.
type Window struct {
	// Token is the token that was actually applied, lower-cased; DefaultToken
	// when the requested token was absent or rejected, "30d" when clamped.
	Token string
	// Requested is the raw token the caller passed in.
	Requested string
	// Fallback is true when a non-empty token was rejected.
	Fallback bool
	// Clamped is true when the token asked for more than MaxSpan.
	Clamped bool
	Span    time.Duration
	Start   time.Time
	End     time.Time
}

// Parse converts a token into a span, clamping at MaxSpan. ok is false for
// tokens that do not match {int}{h|d|w} and for a zero magnitude, which
// would select an empty window. Units are case-insensitive and surrounding
// whitespace is ignored.
func Parse(token string) (span time.Duration, clamped bool, ok bool) {
	m := tokenPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(token)))
	if m == nil {
		return 0, false, false
	}
	unit := unitDurations[m[2]]

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		// Only a range error is possible after the regexp matched.
		return MaxSpan, true, true
	}
	if n == 0 {
		return 0, false, false
	}
	if n > int64(MaxSpan/unit) {
		return MaxSpan, true, true
	}
	return time.Duration(n) * unit, false, true
}

// Resolve produces the window ending at now for token. It never fails:
// unparseable tokens fall back to DefaultToken.
func Resolve(token string, now time.Time) Window {
	w := Window{Requested: token, End: now}

	trimmed := strings.ToLower(strings.TrimSpace(token))
	span, clamped, ok := Parse(trimmed)
	switch {
	case trimmed == "":
		span, _, _ = Parse(DefaultToken)
		w.Token = DefaultToken
	case !ok:
		span, _, _ = Parse(DefaultToken)
		w.Token = DefaultToken
		w.Fallback = true
	case clamped:
		w.Token = maxToken
		w.Clamped = true
	default:
		w.Token = trimmed
	}

	w.Span = span
	w.Start = now.Add(-span)
	return w
}

// Describe renders the window as a phrase such as "last 3 days".
func (w Window) Describe() string {
	return Format(w.Span)
}

// Format renders a span as a human phrase: "last 24 hours", "last N hours",
// "last week" or "last N days". Spans that are not whole days are shown in hours.
func Format(span time.Duration) string {
	switch {
	case span == 24*time.Hour:
		return "last 24 hours"
	case span == week:
		return "last week"
	case span == time.Hour:
		return "last hour"
	case span >= 24*time.Hour && span%(24*time.Hour) == 0:
		return fmt.Sprintf("last %d days", span/(24*time.Hour))
	default:
		return fmt.Sprintf("last %d hours", int64(math.Round(span.Hours())))
	}
}
