package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/edgard/threadscribe/internal/database"
)

type cliEnv struct {
	dir    string
	config string
	dbPath string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := cliEnv{dir: dir, config: filepath.Join(dir, "config.yaml"), dbPath: filepath.Join(dir, "cli.db")}
	body := fmt.Sprintf("log:\n  level: error\ndatabase:\n  driver: sqlite\n  path: %s\nretention:\n  days: 30\n", env.dbPath)
	if err := os.WriteFile(env.config, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e cliEnv) execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e cliEnv) store(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(database.DriverSQLite, e.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func TestMaintenanceCommands(t *testing.T) {
	env := newCLIEnv(t)
	ctx := context.Background()

	out, err := env.execute("migrate")
	if err != nil || !strings.Contains(out, "schema version") || strings.Contains(out, "dirty: true") {
		t.Fatalf("migrate = %q, %v", out, err)
	}

	store := env.store(t)
	if _, err := store.CreateThread(ctx, &database.Thread{ThreadID: 4242, Nickname: "beta", CreatedBy: "operator"}); err != nil {
		t.Fatal(err)
	}

	recent := time.Now().UTC().Add(-time.Hour).Format("2006-01-02 15:04:05")
	old := time.Now().UTC().AddDate(0, 0, -60).Format("2006-01-02 15:04:05")
	logText := strings.Join([]string{
		fmt.Sprintf("[%s UTC] [Mod] alice: the new map is great", recent),
		fmt.Sprintf("[%s UTC] bob: loading screens are slow", recent),
		fmt.Sprintf("[%s UTC] carol: from the old days", old),
		"garbage line",
	}, "\n")
	logPath := filepath.Join(env.dir, "feedback.log")
	if err := os.WriteFile(logPath, []byte(logText), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err = env.execute("import-log", logPath, "beta")
	if err != nil {
		t.Fatalf("import-log error = %v", err)
	}
	if want := "imported 2 of 4 lines into 'beta' (skipped 1, expired 1, duplicates 0)"; !strings.Contains(out, want) {
		t.Errorf("import-log output = %q, want %q", out, want)
	}
	if n, _ := store.CountMessages(ctx, 4242); n != 2 {
		t.Errorf("stored messages = %d, want 2", n)
	}

	if _, err := env.execute("import-log", logPath, "missing"); err == nil {
		t.Error("import-log into an unknown nickname succeeded")
	}
	if _, err := env.execute("import-log", logPath, "beta", "--tz", "Mars/Olympus"); err == nil {
		t.Error("import-log with an invalid zone succeeded")
	}

	out, err = env.execute("sweep")
	if err != nil || !strings.Contains(out, "deleted 0 messages older than 30 days") {
		t.Errorf("sweep = %q, %v", out, err)
	}

	if _, err := env.execute("reset-db"); err == nil {
		t.Error("reset-db without --yes succeeded")
	}
	if out, err := env.execute("reset-db", "--yes"); err != nil || !strings.Contains(out, "database reset") {
		t.Fatalf("reset-db --yes = %q, %v", out, err)
	}
	if thread, err := store.GetThreadByNickname(ctx, "beta"); err != nil || thread != nil {
		t.Errorf("thread after reset = %+v, %v", thread, err)
	}
}

func TestServeRequiresCredentials(t *testing.T) {
	env := newCLIEnv(t)
	t.Setenv("THREADSCRIBE_DISCORD_TOKEN", "")
	t.Setenv("DISCORD_TOKEN", "")

	if _, err := env.execute("serve"); err == nil {
		t.Error("serve without a platform token succeeded")
	}
	if code := run(context.Background(), []string{"--config", env.config, "serve"}); code != 1 {
		t.Errorf("run() exit code = %d, want 1", code)
	}
}
