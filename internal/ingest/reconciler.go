// Package ingest keeps the message store in step with what the platform shows:
// new messages, edits, deletes and full-history imports.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/metrics"
)

// replyTimeLayout is the timestamp layout used inside reply_to.
const replyTimeLayout = "2006-01-02 15:04:05"

// Outcome reports how an event was reconciled.
type Outcome int

const (
	// OutcomeUnwatched means the event's thread is not watched.
	OutcomeUnwatched Outcome = iota
	// OutcomeSkipped means a filter dropped the event (bot author, empty content).
	OutcomeSkipped
	// OutcomeUnchanged means an edit did not change the text.
	OutcomeUnchanged
	// OutcomeStored means a new row was inserted.
	OutcomeStored
	// OutcomeUpdated means an existing row was edited in place.
	OutcomeUpdated
	// OutcomeInsertedEdit means an edit of an unknown message was stored as a new row.
	OutcomeInsertedEdit
	// OutcomeDeleted means a row was removed.
	OutcomeDeleted
	// OutcomeNotFound means a delete matched no row.
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnwatched:
		return "unwatched"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeStored:
		return "stored"
	case OutcomeUpdated:
		return "updated"
	case OutcomeInsertedEdit:
		return "inserted_edit"
	case OutcomeDeleted:
		return "deleted"
	case OutcomeNotFound:
		return "not_found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Options tune the reconciler.
type Options struct {
	// SkipOtherBots drops messages from every bot account, not only our own.
	SkipOtherBots bool
	// Retention is the age beyond which imported messages are dropped.
	Retention time.Duration
	// ProgressEvery is the import progress cadence, in stored messages.
	ProgressEvery int
}

// Reconciler maps platform events to Store mutations.
type Reconciler struct {
	store    database.Store
	platform chat.Platform
	roles    chat.RoleClassifier
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconciler creates a Reconciler. platform may be nil when only log
// imports are used; reply references are then left unresolved.
func NewReconciler(store database.Store, platform chat.Platform, roles chat.RoleClassifier, opts Options, logger *slog.Logger) *Reconciler {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 100
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{
		store:    store,
		platform: platform,
		roles:    roles,
		opts:     opts,
		logger:   logger.With("component", "reconciler"),
		now:      time.Now,
	}
}

// skipAuthor applies the bot-author filter.
func (r *Reconciler) skipAuthor(a chat.Author) bool {
	return a.Self || (a.Bot && r.opts.SkipOtherBots)
}

func (r *Reconciler) watched(ctx context.Context, threadID int64) (bool, error) {
	thread, err := r.store.GetThreadByID(ctx, threadID)
	if err != nil {
		return false, fmt.Errorf("failed to look up thread %d: %w", threadID, err)
	}
	return thread != nil, nil
}

func record(event string, outcome Outcome, err error) {
	if err != nil {
		metrics.RecordIngest(event, "error")
		return
	}
	metrics.RecordIngest(event, outcome.String())
}

// HandleMessage stores a newly posted message.
func (r *Reconciler) HandleMessage(ctx context.Context, m *chat.Message) (outcome Outcome, err error) {
	defer func() { record("message", outcome, err) }()

	ok, err := r.watched(ctx, m.ThreadID)
	if err != nil || !ok {
		return OutcomeUnwatched, err
	}
	if r.skipAuthor(m.Author) {
		return OutcomeSkipped, nil
	}
	content := strings.TrimSpace(m.Content)
	if content == "" {
		return OutcomeSkipped, nil
	}

	msg := r.newRow(ctx, m, content, m.CreatedAt, false)
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to store message %s: %w", m.ID, err)
	}

	r.logger.DebugContext(ctx, "Stored message", "thread_id", m.ThreadID, "message_id", m.ID, "row_id", msg.ID)
	return OutcomeStored, nil
}

// HandleEdit reconciles an edit. before is the platform's cached copy of the
// message prior to the edit and may be nil.
func (r *Reconciler) HandleEdit(ctx context.Context, before, after *chat.Message) (outcome Outcome, err error) {
	defer func() { record("edit", outcome, err) }()

	ok, err := r.watched(ctx, after.ThreadID)
	if err != nil || !ok {
		return OutcomeUnwatched, err
	}
	if r.skipAuthor(after.Author) {
		return OutcomeSkipped, nil
	}
	content := strings.TrimSpace(after.Content)
	if content == "" {
		return OutcomeSkipped, nil
	}

	// Embed-only edits arrive with identical text.
	if before != nil && strings.TrimSpace(before.Content) == content {
		return OutcomeUnchanged, nil
	}

	existing, err := r.locate(ctx, after.ThreadID, after.ID, after.Author.Name, after.CreatedAt)
	if err != nil {
		return OutcomeSkipped, err
	}
	if before == nil && existing != nil && existing.Content == content {
		return OutcomeUnchanged, nil
	}

	editedAt := after.EditedAt
	if editedAt.IsZero() {
		editedAt = r.now()
	}

	if existing != nil {
		found, err := r.store.UpdateMessage(ctx, existing.ID, content, editedAt)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("failed to update message %s: %w", after.ID, err)
		}
		if found {
			return OutcomeUpdated, nil
		}
		// The row vanished between lookup and update (retention or delete); store it fresh.
	}

	msg := r.newRow(ctx, after, content, editedAt, true)
	if err := r.store.SaveMessage(ctx, msg); err != nil {
		return OutcomeSkipped, fmt.Errorf("failed to store edited message %s: %w", after.ID, err)
	}
	r.logger.DebugContext(ctx, "Edited message was not stored, inserted it", "thread_id", after.ThreadID, "message_id", after.ID)
	return OutcomeInsertedEdit, nil
}

// HandleDelete removes the stored copy of a deleted message, if any.
func (r *Reconciler) HandleDelete(ctx context.Context, d chat.Deletion) (outcome Outcome, err error) {
	defer func() { record("delete", outcome, err) }()

	ok, err := r.watched(ctx, d.ThreadID)
	if err != nil || !ok {
		return OutcomeUnwatched, err
	}
	if d.Author != nil && r.skipAuthor(*d.Author) {
		return OutcomeSkipped, nil
	}

	if d.MessageID != "" {
		found, err := r.store.DeleteMessageByPlatformID(ctx, d.ThreadID, d.MessageID)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("failed to delete message %s: %w", d.MessageID, err)
		}
		if found {
			return OutcomeDeleted, nil
		}
	}

	if d.Author != nil && !d.CreatedAt.IsZero() {
		found, err := r.store.DeleteMessageByIdentity(ctx, d.ThreadID, d.Author.Name, d.CreatedAt)
		if err != nil {
			return OutcomeSkipped, fmt.Errorf("failed to delete message by identity: %w", err)
		}
		if found {
			return OutcomeDeleted, nil
		}
	}

	return OutcomeNotFound, nil
}

// locate finds the stored row for a platform message: by platform id first,
// then by the (thread, author, created_at) natural key.
func (r *Reconciler) locate(ctx context.Context, threadID int64, platformID, author string, createdAt time.Time) (*database.Message, error) {
	if platformID != "" {
		m, err := r.store.FindMessageByPlatformID(ctx, threadID, platformID)
		if err != nil {
			return nil, fmt.Errorf("failed to find message %s: %w", platformID, err)
		}
		if m != nil {
			return m, nil
		}
	}
	if createdAt.IsZero() {
		return nil, nil
	}
	m, err := r.store.FindMessageByIdentity(ctx, threadID, author, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find message by identity: %w", err)
	}
	return m, nil
}

func (r *Reconciler) newRow(ctx context.Context, m *chat.Message, content string, at time.Time, edited bool) *database.Message {
	return &database.Message{
		ThreadID:          m.ThreadID,
		PlatformMessageID: database.NullString(m.ID),
		Author:            m.Author.Name,
		Role:              database.NullString(r.roles.Role(m.Author.Roles)),
		Content:           content,
		CreatedAt:         at,
		ReplyTo:           database.NullString(r.resolveReplyTo(ctx, m)),
		Edited:            edited,
	}
}

// resolveReplyTo describes the replied-to message, or returns "" when there is
// no reference or it cannot be resolved.
func (r *Reconciler) resolveReplyTo(ctx context.Context, m *chat.Message) string {
	ref := m.Reference
	if ref == nil {
		return ""
	}
	if ref.Resolved != nil {
		return FormatReplyTo(ref.Resolved.Author.Name, ref.Resolved.CreatedAt)
	}
	if ref.MessageID == "" || r.platform == nil {
		return ""
	}

	threadID := ref.ThreadID
	if threadID == 0 {
		threadID = m.ThreadID
	}
	target, err := r.platform.FetchMessage(ctx, threadID, ref.MessageID)
	if err != nil || target == nil {
		r.logger.DebugContext(ctx, "Could not resolve reply reference", "message_id", m.ID, "reference_id", ref.MessageID, "error", err)
		return ""
	}
	return FormatReplyTo(target.Author.Name, target.CreatedAt)
}

// FormatReplyTo renders the reply_to column: "<author> (<YYYY-MM-DD HH:MM:SS>)" in UTC.
func FormatReplyTo(author string, at time.Time) string {
	return fmt.Sprintf("%s (%s)", author, at.UTC().Format(replyTimeLayout))
}
