package tasks

import (
	"context"
)

// ScheduledTaskFunc defines the standard signature for all scheduled tasks.
// The context provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// Task names as used under scheduler.tasks in the configuration.
const (
	MessageRetentionTask = "message_retention"
	SQLMaintenanceTask   = "sql_maintenance"
)

// RegisterAllTasks returns every task keyed by its configuration name.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		MessageRetentionTask: newMessageRetentionTask(deps),
		SQLMaintenanceTask:   newSQLMaintenanceTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
