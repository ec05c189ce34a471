package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/threadscribe/internal/bot/tasks"
	"github.com/edgard/threadscribe/internal/config"
)

// Scheduler runs the registered tasks on their configured cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler in UTC. Jobs are registered on Start.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logger.With("component", "gocron")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules every enabled task and starts ticking. A task with an
// invalid schedule is logged and skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduled := 0
	if s.cfg != nil {
		for name, taskCfg := range s.cfg.Tasks {
			if !taskCfg.Enabled {
				s.logger.Info("Skipping disabled task", "task_name", name)
				continue
			}
			taskFunc, ok := s.taskMap[name]
			if !ok {
				s.logger.Warn("Scheduled task configured but not registered, skipping", "task_name", name)
				continue
			}
			if taskCfg.Schedule == "" {
				s.logger.Warn("Scheduled task enabled but has empty schedule, skipping", "task_name", name)
				continue
			}

			_, err := s.scheduler.NewJob(
				gocron.CronJob(taskCfg.Schedule, false),
				gocron.NewTask(s.wrap(name, taskFunc), ctx),
				gocron.WithName(name),
				gocron.WithSingletonMode(gocron.LimitModeReschedule),
			)
			if err != nil {
				s.logger.Error("Failed to schedule task", "task_name", name, "schedule", taskCfg.Schedule, "error", err)
				continue
			}

			s.logger.Info("Scheduled task", "task_name", name, "schedule", taskCfg.Schedule)
			scheduled++
		}
	}

	if scheduled == 0 {
		s.logger.Warn("No scheduler tasks configured")
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

func (s *Scheduler) wrap(name string, fn tasks.ScheduledTaskFunc) func(ctx context.Context) {
	return func(ctx context.Context) {
		s.logger.InfoContext(ctx, "Running scheduled task", "task_name", name)
		started := time.Now()
		if err := fn(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled task failed", "task_name", name, "error", err)
		}
		s.logger.InfoContext(ctx, "Finished scheduled task", "task_name", name, "duration", time.Since(started))
	}
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped")
	}
	s.running = false
	return err
}
