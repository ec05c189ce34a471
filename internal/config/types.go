// Package config loads, defaults and validates the application configuration.
package config

import (
	"errors"
	"time"
)

// ErrConfiguration wraps every failure returned by LoadConfig.
var ErrConfiguration = errors.New("configuration error")

// Config is the root configuration for threadscribe.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Platform  string          `mapstructure:"platform"  validate:"oneof=discord telegram"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Retention RetentionConfig `mapstructure:"retention"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Roles     RolesConfig     `mapstructure:"roles"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Summary   SummaryConfig   `mapstructure:"summary"`
	Bot       BotConfig       `mapstructure:"bot"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DiscordConfig configures the Discord transport.
type DiscordConfig struct {
	Token            string `mapstructure:"token"`
	CommandPrefix    string `mapstructure:"command_prefix"     validate:"required"`
	StateMaxMessages int    `mapstructure:"state_max_messages" validate:"min=0"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig selects and configures the SQL backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
}

// DataSource is the driver-specific connection string: the file path for
// sqlite, the URL for postgres.
func (d DatabaseConfig) DataSource() string {
	if d.Driver == "postgres" {
		return d.URL
	}
	return d.Path
}

// AIConfig configures the summarization backend.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"     validate:"required"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"     validate:"omitempty,url"`
	Model       string        `mapstructure:"model"        validate:"required"`
	Temperature float32       `mapstructure:"temperature"  validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens"   validate:"min=1"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"min=1s,max=10m"`
	MaxRetries  int           `mapstructure:"max_retries"  validate:"min=0,max=10"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Prompt      string        `mapstructure:"prompt"       validate:"required"`

	// BreakerFailures consecutive failures open the circuit for
	// BreakerCooldown. Zero disables the breaker.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=0"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// RetentionConfig controls how long messages are kept.
type RetentionConfig struct {
	Days int `mapstructure:"days" validate:"min=1"`
}

// Period is the retention horizon as a duration.
func (r RetentionConfig) Period() time.Duration {
	return time.Duration(r.Days) * 24 * time.Hour
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig configures a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// RolesConfig lists the platform role names that map to privilege tags.
type RolesConfig struct {
	Dev []string `mapstructure:"dev"`
	Mod []string `mapstructure:"mod"`
}

// IngestConfig tunes the ingestion reconciler.
type IngestConfig struct {
	SkipOtherBots  bool `mapstructure:"skip_other_bots"`
	ProgressEvery  int  `mapstructure:"progress_every"   validate:"min=1"`
	HistoryPageMax int  `mapstructure:"history_page_max" validate:"min=1,max=100"`
}

// SummaryConfig tunes summary delivery.
type SummaryConfig struct {
	MessageLimit int `mapstructure:"message_limit" validate:"min=100"`
}

// BotConfig holds per-operation timeouts.
type BotConfig struct {
	DBTimeout     time.Duration `mapstructure:"db_timeout"     validate:"min=1s"`
	ImportTimeout time.Duration `mapstructure:"import_timeout" validate:"min=1s"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// MessagesConfig holds user-facing strings.
type MessagesConfig struct {
	NotAuthorized    string `mapstructure:"not_authorized"     validate:"required"`
	UnknownCommand   string `mapstructure:"unknown_command"    validate:"required"`
	GeneralError     string `mapstructure:"general_error"      validate:"required"`
	Generating       string `mapstructure:"generating"         validate:"required"`
	ImportStarting   string `mapstructure:"import_starting"    validate:"required"`
	NoThreadsWatched string `mapstructure:"no_threads_watched" validate:"required"`
}
