// Package chat defines the platform-neutral view of threads, messages and
// members that the reconciler and command service work against. Platform
// adapters translate SDK events into these types.
package chat

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrHistoryUnavailable is returned by platforms that cannot replay a thread's history.
	ErrHistoryUnavailable = errors.New("message history is not available on this platform")
	// ErrNotThread is returned when an id names something other than a thread.
	ErrNotThread = errors.New("channel is not a thread")
	// ErrNotFound is returned when the platform reports the object does not exist.
	ErrNotFound = errors.New("not found on platform")
	// ErrForbidden is returned when the bot lacks access to the object.
	ErrForbidden = errors.New("access denied by platform")
)

// Author identifies who wrote a message.
type Author struct {
	ID string
	// Name is the display string stored with each message.
	Name string
	Bot  bool
	// Self is true for the bot's own account.
	Self bool
	// Roles are the author's platform role names when the adapter knows them.
	Roles []string
}

// Reference points at the message being replied to.
type Reference struct {
	ThreadID  int64
	MessageID string
	// Resolved is set when the platform delivered the referenced message inline.
	Resolved *Message
}

// Message is a platform message as observed by the bot.
type Message struct {
	ID        string
	ThreadID  int64
	Author    Author
	Content   string
	CreatedAt time.Time
	// EditedAt is zero for messages that were never edited.
	EditedAt  time.Time
	Reference *Reference
}

// Deletion describes a delete event. Platforms often deliver only the id, so
// Author and CreatedAt are optional.
type Deletion struct {
	ThreadID  int64
	MessageID string
	Author    *Author
	CreatedAt time.Time
}

// Member describes the privileges of a command invoker.
type Member struct {
	Author
	ManageMessages bool
	Owner          bool
}

// Platform is what the core needs from a chat platform.
type Platform interface {
	// Name identifies the platform in logs and metrics.
	Name() string
	// CheckThread returns nil when threadID names a reachable thread,
	// ErrNotThread, ErrNotFound or ErrForbidden otherwise.
	CheckThread(ctx context.Context, threadID int64) error
	// FetchMessage retrieves a single message.
	FetchMessage(ctx context.Context, threadID int64, messageID string) (*Message, error)
	// History calls fn for every message in the thread, oldest first. It stops
	// at the first error fn returns and returns it.
	History(ctx context.Context, threadID int64, fn func(*Message) error) error
}

// Conversation is the place a command was issued; replies go back to it.
type Conversation interface {
	// Reply posts text and returns a handle that can later be edited.
	Reply(ctx context.Context, text string) (string, error)
	// Edit replaces the text of a message previously returned by Reply.
	Edit(ctx context.Context, messageID, text string) error
}
