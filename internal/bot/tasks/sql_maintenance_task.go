package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask vacuums the database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", SQLMaintenanceTask)

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting SQL maintenance")
		started := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed", "error", err, "duration", time.Since(started))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance completed", "duration", time.Since(started))
		return nil
	}
}
