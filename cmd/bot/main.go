// Package main contains the entrypoint for threadscribe: the chat bot itself
// and the database maintenance commands that share its configuration.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/edgard/threadscribe/internal/config"
	"github.com/edgard/threadscribe/internal/logger"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, os.Args[1:])
	stop() // Ensure context cancellation is signaled before exit
	os.Exit(exitCode)
}

// run executes the command line and returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context, args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("Command failed", "error", err)
		// Allow logs to flush before exiting on error
		time.Sleep(100 * time.Millisecond)
		return 1
	}
	return 0
}

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "threadscribe",
		Short: "Watch chat threads and summarize them on demand",
		Long: `threadscribe records the messages of watched Discord threads or Telegram
groups and produces AI summaries over a chosen timeframe.

Running without a subcommand starts the bot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), a)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "./config.yaml", "Path to configuration file")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newResetDBCmd(a),
		newSweepCmd(a),
		newImportLogCmd(a),
	)
	return root
}

// load reads .env, then the configuration, and installs the logger.
func (a *app) load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", a.configPath, "error", err)
		return err
	}
	a.cfg = cfg

	a.log = logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	a.log.Debug("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)
	return nil
}
