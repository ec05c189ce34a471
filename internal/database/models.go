package database

import (
	"database/sql"
	"time"
)

// Thread is a watched conversation. Nickname is unique and never changes
// after creation; Description is injected into summarization prompts.
type Thread struct {
	ThreadID    int64          `db:"thread_id"`
	Nickname    string         `db:"nickname"`
	Description sql.NullString `db:"description"`
	CreatedBy   string         `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Message is the current state of a single stored utterance in a watched thread.
// CreatedAt holds the most recent known timestamp: the edit time once edited.
type Message struct {
	ID                int64          `db:"id"`
	ThreadID          int64          `db:"thread_id"`
	PlatformMessageID sql.NullString `db:"platform_message_id"`
	Author            string         `db:"author"`
	Role              sql.NullString `db:"role"`
	Content           string         `db:"content"`
	CreatedAt         time.Time      `db:"created_at"`
	ReplyTo           sql.NullString `db:"reply_to"`
	Edited            bool           `db:"edited"`
}

// NullString converts an optional string, mapping "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// normalizeTime is applied to every timestamp crossing the Store boundary so
// that equality matches behave the same on SQLite text columns and Postgres.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
