// Package handlers implements the operator commands. Handlers are platform
// neutral: adapters parse incoming text into a Request and hand it to a Router.
package handlers

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/summary"
)

// Request is a parsed command invocation.
type Request struct {
	// Prefix is the command prefix used on this platform, such as "!" or "/".
	Prefix string
	// Command is the command name as typed, without prefix or @bot suffix.
	Command string
	Args    []string
	// raw is the text after the command name; ends[i] is the offset in raw
	// just past Args[i].
	raw  string
	ends []int

	Member       *chat.Member
	Conversation chat.Conversation

	// handler is the command being run, set by the Router.
	handler RegisteredHandler
}

// HandlerFunc handles a command. Expected failures are reported to the user
// and return nil; a returned error is logged and answered with a generic message.
type HandlerFunc func(ctx context.Context, req *Request) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// ParseCommand splits text into a command name and arguments. ok is false when
// text does not start with prefix followed by a name.
func ParseCommand(text, prefix string) (*Request, bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(text), prefix)
	if !found || rest == "" || unicode.IsSpace(rune(rest[0])) {
		return nil, false
	}

	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		end = len(rest)
	}
	name := rest[:end]
	// Telegram appends the bot username in groups: /sum@threadscribe_bot.
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}

	raw := rest[end:]
	args, ends := splitArgs(raw)
	return &Request{Prefix: prefix, Command: name, Args: args, raw: raw, ends: ends}, true
}

func isQuote(r rune) bool {
	return r == '"' || r == '“' || r == '”'
}

// splitArgs splits on whitespace, treating double-quoted spans as one argument.
// An unterminated quote runs to the end of s.
func splitArgs(s string) (args []string, ends []int) {
	var cur strings.Builder
	inQuote, inArg := false, false

	for i, r := range s {
		switch {
		case isQuote(r):
			inQuote = !inQuote
			inArg = true
		case unicode.IsSpace(r) && !inQuote:
			if inArg {
				args = append(args, cur.String())
				ends = append(ends, i)
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
		ends = append(ends, len(s))
	}
	return args, ends
}

// Rest returns the raw text after the first n arguments, trimmed, with one
// pair of surrounding quotes removed.
func (r *Request) Rest(n int) string {
	var s string
	switch {
	case n <= 0:
		s = r.raw
	case n > len(r.ends):
		return ""
	default:
		s = r.raw[r.ends[n-1]:]
	}
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) >= 2 && isQuote(runes[0]) && isQuote(runes[len(runes)-1]) {
		inner := string(runes[1 : len(runes)-1])
		if !strings.ContainsFunc(inner, isQuote) {
			return strings.TrimSpace(inner)
		}
	}
	return s
}

// usage renders the running command's usage line with this request's prefix.
func (r *Request) usage() string {
	h := r.handler
	return "Usage: `" + r.Prefix + h.displayName(r.Prefix) + usageSuffix(h.Usage) + "`"
}

func usageSuffix(u string) string {
	if u == "" {
		return ""
	}
	return " " + u
}

// reply sends text, splitting it when it exceeds limit.
func (r *Request) reply(ctx context.Context, log *slog.Logger, limit int, text string) {
	chunks, err := summary.Split("", text, limit)
	if err != nil {
		chunks = []summary.Chunk{{Body: text}}
	}
	for i, c := range chunks {
		if i > 0 {
			c.Prefix = ""
		}
		if _, err := r.Conversation.Reply(ctx, c.String()); err != nil {
			log.ErrorContext(ctx, "Failed to send reply", "command", r.Command, "error", err)
			return
		}
	}
}
