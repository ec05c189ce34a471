package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/metrics"
)

// ProgressFunc is called after every Options.ProgressEvery stored messages.
type ProgressFunc func(ctx context.Context, stored int)

// ImportResult summarizes a historical import.
type ImportResult struct {
	// ID correlates the import's log lines.
	ID         string
	Seen       int
	Stored     int
	Skipped    int
	Expired    int
	Duplicates int
}

// ImportHistory replays a thread's history oldest-first into the store. The
// same filters as live messages apply; messages older than the retention
// horizon and messages already stored are skipped. A persistence failure
// aborts the import; rows committed before it stay.
func (r *Reconciler) ImportHistory(ctx context.Context, threadID int64, progress ProgressFunc) (ImportResult, error) {
	res := ImportResult{ID: uuid.NewString()}
	if r.platform == nil {
		return res, chat.ErrHistoryUnavailable
	}
	log := r.logger.With("import_id", res.ID, "thread_id", threadID)
	log.InfoContext(ctx, "Starting history import")
	started := time.Now()

	horizon := r.now().Add(-r.opts.Retention)

	err := r.platform.History(ctx, threadID, func(m *chat.Message) error {
		res.Seen++

		content := strings.TrimSpace(m.Content)
		if r.skipAuthor(m.Author) || content == "" {
			res.Skipped++
			return nil
		}

		at, edited := effectiveTime(m)
		if r.opts.Retention > 0 && at.Before(horizon) {
			res.Expired++
			return nil
		}

		if m.ID != "" {
			existing, err := r.store.FindMessageByPlatformID(ctx, threadID, m.ID)
			if err != nil {
				return fmt.Errorf("failed to check for stored message %s: %w", m.ID, err)
			}
			if existing != nil {
				res.Duplicates++
				return nil
			}
		}

		m.ThreadID = threadID
		row := r.newRow(ctx, m, content, at, edited)
		if err := r.store.SaveMessage(ctx, row); err != nil {
			return fmt.Errorf("failed to store message %s: %w", m.ID, err)
		}
		res.Stored++

		if progress != nil && res.Stored%r.opts.ProgressEvery == 0 {
			progress(ctx, res.Stored)
		}
		return nil
	})

	status := "ok"
	switch {
	case errors.Is(err, chat.ErrHistoryUnavailable):
		status = "unavailable"
	case err != nil:
		status = "error"
	}
	metrics.RecordImport(status, res.Stored)

	log.InfoContext(ctx, "History import finished",
		"status", status, "seen", res.Seen, "stored", res.Stored, "skipped", res.Skipped,
		"expired", res.Expired, "duplicates", res.Duplicates, "duration", time.Since(started))
	if err != nil {
		return res, fmt.Errorf("import of thread %d stopped after %d messages: %w", threadID, res.Stored, err)
	}
	return res, nil
}

// effectiveTime is the most recent known timestamp of a message and whether it was edited.
func effectiveTime(m *chat.Message) (time.Time, bool) {
	if !m.EditedAt.IsZero() && m.EditedAt.After(m.CreatedAt) {
		return m.EditedAt, true
	}
	return m.CreatedAt, !m.EditedAt.IsZero()
}
