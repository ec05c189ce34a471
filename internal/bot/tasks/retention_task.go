package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/metrics"
)

// Sweep deletes every message created before now minus retention and returns
// how many were removed. Failures are logged and reported as zero.
func Sweep(ctx context.Context, store database.Store, retention time.Duration, now time.Time, log *slog.Logger) int64 {
	cutoff := now.UTC().Add(-retention)
	started := time.Now()

	deleted, err := store.DeleteMessagesBefore(ctx, cutoff)
	if err != nil {
		log.ErrorContext(ctx, "Retention sweep failed", "cutoff", cutoff, "error", err)
		metrics.RecordRetention("error", 0)
		return 0
	}

	log.InfoContext(ctx, "Retention sweep completed", "cutoff", cutoff, "deleted", deleted, "duration", time.Since(started))
	metrics.RecordRetention("ok", deleted)
	return deleted
}

// newMessageRetentionTask drops messages older than retention.days. It never
// returns an error so a failed cycle does not disturb the scheduler.
func newMessageRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", MessageRetentionTask)
	retention := deps.Config.Retention.Period()

	return func(ctx context.Context) error {
		Sweep(ctx, deps.Store, retention, deps.now(), log)
		return nil
	}
}
