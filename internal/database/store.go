package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Every write is its own transaction; nothing spans more than one call.
// Expected misses are reported as false or nil results rather than errors.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateThread inserts a thread. It returns false, without error, when the
	// thread id or nickname is already taken; the existing row is never touched.
	CreateThread(ctx context.Context, thread *Thread) (bool, error)

	// GetThreadByNickname returns nil, nil if no thread has that nickname.
	GetThreadByNickname(ctx context.Context, nickname string) (*Thread, error)

	// GetThreadByID returns nil, nil if the thread is not watched.
	GetThreadByID(ctx context.Context, threadID int64) (*Thread, error)

	// ListThreads returns all threads, newest-created first.
	ListThreads(ctx context.Context) ([]Thread, error)

	// UpdateThreadDescription sets the description; false if the nickname is unknown.
	UpdateThreadDescription(ctx context.Context, nickname, description string) (bool, error)

	// DeleteThread removes a thread and all of its messages; false if unknown.
	DeleteThread(ctx context.Context, nickname string) (bool, error)

	// SaveMessage inserts a message and sets message.ID.
	SaveMessage(ctx context.Context, message *Message) error

	// FindMessageByPlatformID returns nil, nil if no row carries that platform id.
	FindMessageByPlatformID(ctx context.Context, threadID int64, platformID string) (*Message, error)

	// FindMessageByIdentity returns the lowest-id row matching the natural key, or nil, nil.
	FindMessageByIdentity(ctx context.Context, threadID int64, author string, createdAt time.Time) (*Message, error)

	// UpdateMessage replaces content, marks the row edited and advances created_at
	// to editedAt unless the stored timestamp is already later.
	UpdateMessage(ctx context.Context, id int64, content string, editedAt time.Time) (bool, error)

	// DeleteMessageByPlatformID deletes the row carrying that platform id.
	DeleteMessageByPlatformID(ctx context.Context, threadID int64, platformID string) (bool, error)

	// DeleteMessageByIdentity deletes at most one row matching (thread, author, created_at).
	// Two messages from the same author with identical timestamps cannot be told
	// apart; the lowest id is removed.
	DeleteMessageByIdentity(ctx context.Context, threadID int64, author string, createdAt time.Time) (bool, error)

	// GetMessages returns a thread's messages ascending by created_at.
	// Nil bounds are open; non-nil bounds are inclusive.
	GetMessages(ctx context.Context, threadID int64, start, end *time.Time) ([]Message, error)

	// CountMessages returns how many messages are stored for a thread.
	CountMessages(ctx context.Context, threadID int64) (int64, error)

	// DeleteMessagesBefore removes every message with created_at strictly before cutoff.
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// Queries are written with ? placeholders and rebound for the connected driver.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn inside a transaction and commits it if fn succeeds.
func (s *sqlxStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
				}
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil
	return nil
}

func (s *sqlxStore) CreateThread(ctx context.Context, thread *Thread) (bool, error) {
	if thread == nil {
		return false, errors.New("cannot create nil thread")
	}
	if thread.Nickname == "" {
		return false, errors.New("thread must have a nickname")
	}
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now()
	}
	thread.CreatedAt = normalizeTime(thread.CreatedAt)

	var created bool
	err := s.inTx(ctx, "create_thread", func(tx *sqlx.Tx) error {
		query := s.db.Rebind(`
			INSERT INTO threads (thread_id, nickname, description, created_by, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`)
		result, err := tx.ExecContext(ctx, query,
			thread.ThreadID, thread.Nickname, thread.Description, thread.CreatedBy, thread.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert thread %q: %w", thread.Nickname, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		created = affected == 1
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating thread", "thread_id", thread.ThreadID, "nickname", thread.Nickname, "error", err)
		return false, err
	}

	if !created {
		s.logger.InfoContext(ctx, "Thread id or nickname already taken", "thread_id", thread.ThreadID, "nickname", thread.Nickname)
	}
	return created, nil
}

const threadColumns = `thread_id, nickname, description, created_by, created_at`

func (s *sqlxStore) getThread(ctx context.Context, where string, arg any) (*Thread, error) {
	var thread Thread
	query := s.db.Rebind(`SELECT ` + threadColumns + ` FROM threads WHERE ` + where)
	err := s.db.GetContext(ctx, &thread, query, arg)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching thread", "error", err)
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	thread.CreatedAt = thread.CreatedAt.UTC()
	return &thread, nil
}

func (s *sqlxStore) GetThreadByNickname(ctx context.Context, nickname string) (*Thread, error) {
	return s.getThread(ctx, "nickname = ?", nickname)
}

func (s *sqlxStore) GetThreadByID(ctx context.Context, threadID int64) (*Thread, error) {
	return s.getThread(ctx, "thread_id = ?", threadID)
}

func (s *sqlxStore) ListThreads(ctx context.Context) ([]Thread, error) {
	var threads []Thread
	query := `SELECT ` + threadColumns + ` FROM threads ORDER BY created_at DESC, thread_id DESC`
	if err := s.db.SelectContext(ctx, &threads, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing threads", "error", err)
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	for i := range threads {
		threads[i].CreatedAt = threads[i].CreatedAt.UTC()
	}
	return threads, nil
}

// execAffected runs a single statement in its own transaction and reports
// whether any row was affected.
func (s *sqlxStore) execAffected(ctx context.Context, op, query string, args ...any) (int64, error) {
	var affected int64
	err := s.inTx(ctx, op, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, s.db.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		affected, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s: failed to read rows affected: %w", op, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Store write failed", "op", op, "error", err)
		return 0, err
	}
	return affected, nil
}

func (s *sqlxStore) UpdateThreadDescription(ctx context.Context, nickname, description string) (bool, error) {
	affected, err := s.execAffected(ctx, "update_thread_description",
		`UPDATE threads SET description = ? WHERE nickname = ?`, NullString(description), nickname)
	return affected > 0, err
}

func (s *sqlxStore) DeleteThread(ctx context.Context, nickname string) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, "delete_thread", func(tx *sqlx.Tx) error {
		var threadID int64
		err := tx.GetContext(ctx, &threadID, s.db.Rebind(`SELECT thread_id FROM threads WHERE nickname = ?`), nickname)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up thread %q: %w", nickname, err)
		}

		// Explicit so removal does not depend on the connection enforcing foreign keys.
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM messages WHERE thread_id = ?`), threadID); err != nil {
			return fmt.Errorf("failed to delete messages of thread %q: %w", nickname, err)
		}
		if _, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM threads WHERE thread_id = ?`), threadID); err != nil {
			return fmt.Errorf("failed to delete thread %q: %w", nickname, err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting thread", "nickname", nickname, "error", err)
		return false, err
	}
	return deleted, nil
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return errors.New("cannot save nil message")
	}
	if message.ThreadID == 0 {
		return errors.New("message must have a non-zero thread_id")
	}
	if strings.TrimSpace(message.Content) == "" {
		return errors.New("message must have non-empty content")
	}
	if message.CreatedAt.IsZero() {
		return errors.New("message must have a non-zero created_at")
	}
	message.CreatedAt = normalizeTime(message.CreatedAt)

	err := s.inTx(ctx, "save_message", func(tx *sqlx.Tx) error {
		query := s.db.Rebind(`
			INSERT INTO messages (thread_id, platform_message_id, author, role, content, created_at, reply_to, edited)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`)
		row := tx.QueryRowxContext(ctx, query,
			message.ThreadID, message.PlatformMessageID, message.Author, message.Role,
			message.Content, message.CreatedAt, message.ReplyTo, message.Edited)
		if err := row.Scan(&message.ID); err != nil {
			return fmt.Errorf("failed to save message (thread %d, author %q): %w", message.ThreadID, message.Author, err)
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "thread_id", message.ThreadID, "author", message.Author, "error", err)
		return err
	}

	s.logger.DebugContext(ctx, "Message saved successfully", "thread_id", message.ThreadID, "message_id", message.ID)
	return nil
}

const messageColumns = `id, thread_id, platform_message_id, author, role, content, created_at, reply_to, edited`

func (s *sqlxStore) getMessage(ctx context.Context, where string, args ...any) (*Message, error) {
	var message Message
	query := s.db.Rebind(`SELECT ` + messageColumns + ` FROM messages WHERE ` + where + ` ORDER BY id LIMIT 1`)
	err := s.db.GetContext(ctx, &message, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find message: %w", err)
	}
	message.CreatedAt = message.CreatedAt.UTC()
	return &message, nil
}

func (s *sqlxStore) FindMessageByPlatformID(ctx context.Context, threadID int64, platformID string) (*Message, error) {
	if platformID == "" {
		return nil, nil
	}
	return s.getMessage(ctx, "thread_id = ? AND platform_message_id = ?", threadID, platformID)
}

func (s *sqlxStore) FindMessageByIdentity(ctx context.Context, threadID int64, author string, createdAt time.Time) (*Message, error) {
	return s.getMessage(ctx, "thread_id = ? AND author = ? AND created_at = ?", threadID, author, normalizeTime(createdAt))
}

func (s *sqlxStore) UpdateMessage(ctx context.Context, id int64, content string, editedAt time.Time) (bool, error) {
	editedAt = normalizeTime(editedAt)
	affected, err := s.execAffected(ctx, "update_message", `
		UPDATE messages
		SET content = ?,
		    edited = ?,
		    created_at = CASE WHEN created_at > ? THEN created_at ELSE ? END
		WHERE id = ?`,
		content, true, editedAt, editedAt, id)
	return affected > 0, err
}

func (s *sqlxStore) DeleteMessageByPlatformID(ctx context.Context, threadID int64, platformID string) (bool, error) {
	if platformID == "" {
		return false, nil
	}
	affected, err := s.execAffected(ctx, "delete_message_by_platform_id", `
		DELETE FROM messages WHERE id = (
			SELECT MIN(id) FROM messages WHERE thread_id = ? AND platform_message_id = ?
		)`, threadID, platformID)
	return affected > 0, err
}

func (s *sqlxStore) DeleteMessageByIdentity(ctx context.Context, threadID int64, author string, createdAt time.Time) (bool, error) {
	affected, err := s.execAffected(ctx, "delete_message_by_identity", `
		DELETE FROM messages WHERE id = (
			SELECT MIN(id) FROM messages WHERE thread_id = ? AND author = ? AND created_at = ?
		)`, threadID, author, normalizeTime(createdAt))
	return affected > 0, err
}

func (s *sqlxStore) GetMessages(ctx context.Context, threadID int64, start, end *time.Time) ([]Message, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + messageColumns + ` FROM messages WHERE thread_id = ?`)
	args := []any{threadID}
	if start != nil {
		sb.WriteString(` AND created_at >= ?`)
		args = append(args, normalizeTime(*start))
	}
	if end != nil {
		sb.WriteString(` AND created_at <= ?`)
		args = append(args, normalizeTime(*end))
	}
	sb.WriteString(` ORDER BY created_at ASC, id ASC`)

	var messages []Message
	err := s.db.SelectContext(ctx, &messages, s.db.Rebind(sb.String()), args...)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching messages", "thread_id", threadID, "error", err)
		return nil, err
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting messages", "thread_id", threadID, "error", err)
		return nil, fmt.Errorf("failed to get messages for thread %d: %w", threadID, err)
	}

	for i := range messages {
		messages[i].CreatedAt = messages[i].CreatedAt.UTC()
	}
	s.logger.DebugContext(ctx, "Fetched messages", "thread_id", threadID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) CountMessages(ctx context.Context, threadID int64) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, s.db.Rebind(`SELECT COUNT(*) FROM messages WHERE thread_id = ?`), threadID); err != nil {
		return 0, fmt.Errorf("failed to count messages for thread %d: %w", threadID, err)
	}
	return count, nil
}

func (s *sqlxStore) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = normalizeTime(cutoff)
	affected, err := s.execAffected(ctx, "delete_messages_before",
		`DELETE FROM messages WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "Deleted messages older than cutoff", "cutoff", cutoff, "deleted", affected)
	return affected, nil
}

// RunSQLMaintenance vacuums the database. Both dialects refuse VACUUM inside
// a transaction, so it runs directly on the pool.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	stmt := "VACUUM;"
	if s.db.DriverName() == DriverPostgres {
		stmt = "VACUUM ANALYZE;"
	}

	s.logger.InfoContext(ctx, "Starting database maintenance", "statement", stmt)
	_, err := s.db.ExecContext(ctx, stmt)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
