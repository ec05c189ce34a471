// Package database provides database setup, models, and the data access layer (Store).
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/threadscribe/migrations"

	_ "github.com/lib/pq"  //revive:disable:blank-imports
	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLiteDSN builds a modernc.org/sqlite DSN for a file path. Times are stored in
// a sortable text layout and foreign keys are enforced on every connection.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_time_format=sqlite&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewDB connects to the database, applies pending migrations and returns the pool.
// For the sqlite driver dsn may be a plain file path; it is expanded with SQLiteDSN.
func NewDB(driver, dsn string) (*sqlx.DB, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := ApplyMigrations(db.DB, driver); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database connected and migrations applied successfully", "driver", driver)
	return db, nil
}

// Open connects to the database without touching the schema.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if !strings.HasPrefix(dsn, "file:") {
			dsn = SQLiteDSN(dsn)
		}
		if dir := filepath.Dir(ExtractDBNameFromPath(dsn)); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite doesn't support concurrent writes
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// CloseDB closes the database connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed successfully.")
	}
}

// newMigrator wires the embedded migrations for driver onto db.
func newMigrator(db *sql.DB, driver string) (*migrate.Migrate, error) {
	if db == nil {
		return nil, errors.New("database connection is nil, cannot apply migrations")
	}

	sourceDriver, err := iofs.New(migrations.FS, driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	var dbDriver database.Driver
	switch driver {
	case DriverSQLite:
		dbDriver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case DriverPostgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, driver, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return migrator, nil
}

// ApplyMigrations runs all pending up migrations for driver.
func ApplyMigrations(db *sql.DB, driver string) error {
	slog.Info("Applying database migrations...", "driver", driver)

	migrator, err := newMigrator(db, driver)
	if err != nil {
		return err
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully.")
	return nil
}

// ResetSchema migrates all the way down and back up, dropping every stored row.
func ResetSchema(db *sql.DB, driver string) error {
	migrator, err := newMigrator(db, driver)
	if err != nil {
		return err
	}

	slog.Warn("Dropping database schema", "driver", driver)
	if err := migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate down: %w", err)
	}
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate up: %w", err)
	}

	slog.Info("Database schema recreated", "driver", driver)
	return nil
}

// SchemaVersion reports the current migration version and whether it is dirty.
func SchemaVersion(db *sql.DB, driver string) (uint, bool, error) {
	migrator, err := newMigrator(db, driver)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, dirty, nil
}

// ExtractDBNameFromPath extracts the database file path from a possibly URL-formatted path.
func ExtractDBNameFromPath(path string) string {
	path = strings.TrimPrefix(path, "file:")

	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}

	return path
}
