package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/edgard/threadscribe/internal/bot/tasks"
	"github.com/edgard/threadscribe/internal/config"
)

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	noop := func(context.Context) error { return nil }
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"valid":        {Enabled: true, Schedule: "0 3 * * *"},
		"disabled":     {Enabled: false, Schedule: "0 3 * * *"},
		"bad":          {Enabled: true, Schedule: "every day"},
		"unregistered": {Enabled: true, Schedule: "0 3 * * *"},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{"valid": noop, "disabled": noop, "bad": noop}

	s, err := NewScheduler(logger, cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}
	if jobs := s.scheduler.Jobs(); len(jobs) != 1 || jobs[0].Name() != "valid" {
		t.Errorf("scheduled jobs = %d, want only \"valid\"", len(jobs))
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
