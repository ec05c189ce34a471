package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/edgard/threadscribe/internal/bot/tasks"
	"github.com/edgard/threadscribe/internal/chat"
	"github.com/edgard/threadscribe/internal/database"
	"github.com/edgard/threadscribe/internal/ingest"
)

// openDB connects and applies pending migrations.
func (a *app) openDB() (*sqlx.DB, database.Store, error) {
	db, err := database.NewDB(a.cfg.Database.Driver, a.cfg.Database.DataSource())
	if err != nil {
		return nil, nil, err
	}
	return db, database.NewStore(db, a.log), nil
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := database.Open(a.cfg.Database.Driver, a.cfg.Database.DataSource())
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			if err := database.ApplyMigrations(db.DB, a.cfg.Database.Driver); err != nil {
				return err
			}
			version, dirty, err := database.SchemaVersion(db.DB, a.cfg.Database.Driver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}

func newResetDBCmd(a *app) *cobra.Command {
	var confirm bool
	cmd := &cobra.Command{
		Use:   "reset-db",
		Short: "Drop every table and recreate the schema",
		Long: `Migrate the database all the way down and back up. Every watched thread
and stored message is deleted. Requires --yes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("refusing to reset the database without --yes")
			}
			db, err := database.Open(a.cfg.Database.Driver, a.cfg.Database.DataSource())
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			if err := database.ResetSchema(db.DB, a.cfg.Database.Driver); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm that all stored data may be deleted")
	return cmd
}

func newSweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete messages older than retention.days once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, store, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			deleted := tasks.Sweep(cmd.Context(), store, a.cfg.Retention.Period(), time.Now(), a.log.With("task", tasks.MessageRetentionTask))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s messages older than %d days\n", humanize.Comma(deleted), a.cfg.Retention.Days)
			return nil
		},
	}
}

func newImportLogCmd(a *app) *cobra.Command {
	var tz string
	cmd := &cobra.Command{
		Use:   "import-log <file> <nickname>",
		Short: "Import a plain-text message log into a watched thread",
		Long: `Import lines of the form

  [2025-10-16 14:03:00 UTC] [Mod] alice (reply to bob (2025-10-16 13:55:00)): text  [edited]

into the thread watched under <nickname>. Lines that do not parse, messages
older than the retention horizon and messages already stored are skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, nickname := args[0], args[1]

			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid --tz %q: %w", tz, err)
			}

			db, store, err := a.openDB()
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			thread, err := store.GetThreadByNickname(cmd.Context(), nickname)
			if err != nil {
				return err
			}
			if thread == nil {
				return fmt.Errorf("no thread found with nickname %q", nickname)
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			defer f.Close()

			roles := chat.NewRoleClassifier(a.cfg.Roles.Dev, a.cfg.Roles.Mod)
			reconciler := ingest.NewReconciler(store, nil, roles, ingest.Options{
				SkipOtherBots: a.cfg.Ingest.SkipOtherBots,
				Retention:     a.cfg.Retention.Period(),
				ProgressEvery: a.cfg.Ingest.ProgressEvery,
			}, a.log)

			res, err := reconciler.ImportLog(cmd.Context(), thread.ThreadID, f, loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s of %s lines into '%s' (skipped %s, expired %s, duplicates %s)\n",
				humanize.Comma(int64(res.Stored)), humanize.Comma(int64(res.Seen)), thread.Nickname,
				humanize.Comma(int64(res.Skipped)), humanize.Comma(int64(res.Expired)), humanize.Comma(int64(res.Duplicates)))
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "UTC", "time zone of timestamps that carry no zone, as an IANA name")
	return cmd
}
