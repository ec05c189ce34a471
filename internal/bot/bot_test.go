package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/edgard/threadscribe/internal/config"
)

type fakeTransport struct {
	// early makes Run return before ctx is cancelled.
	early error
	quit  bool
}

func (t fakeTransport) Name() string { return "fake" }

func (t fakeTransport) Run(ctx context.Context) error {
	if t.early != nil || t.quit {
		return t.early
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestBotRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		transport fakeTransport
		wantErr   bool
	}{
		{name: "graceful shutdown", transport: fakeTransport{}},
		{name: "transport failure", transport: fakeTransport{early: errors.New("gateway closed")}, wantErr: true},
		{name: "transport returns early", transport: fakeTransport{quit: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			sched, err := NewScheduler(logger, &config.SchedulerConfig{}, nil)
			if err != nil {
				t.Fatal(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			time.AfterFunc(50*time.Millisecond, cancel)

			err = NewBot(logger, tt.transport, sched, nil).Run(ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("Run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
