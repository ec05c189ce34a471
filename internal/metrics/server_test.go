package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestServerEndpoints(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	RecordIngest("message", "stored")

	tests := []struct {
		name       string
		ping       error
		path       string
		wantStatus int
		wantBody   string
	}{
		{name: "healthz", path: "/healthz", wantStatus: http.StatusOK, wantBody: "ok"},
		{name: "ready", path: "/readyz", wantStatus: http.StatusOK, wantBody: "ready"},
		{name: "not ready", ping: errors.New("db down"), path: "/readyz", wantStatus: http.StatusServiceUnavailable},
		{name: "metrics", path: "/metrics", wantStatus: http.StatusOK, wantBody: "threadscribe_ingest_events_total"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := NewServer(":0", pingFunc(func(context.Context) error { return tt.ping }), logger)

			rec := httptest.NewRecorder()
			srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body does not contain %q", tt.wantBody)
			}
		})
	}
}
