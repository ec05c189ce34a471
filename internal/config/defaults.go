package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultPlatform = "discord"

	DefaultDiscordCommandPrefix    = "!"
	DefaultDiscordStateMaxMessages = 500

	DefaultDBDriver = "sqlite"
	DefaultDBPath   = "instance/feedback.db"

	DefaultAIProvider    = "openai"
	DefaultAIModel       = "gpt-4"
	DefaultAITemperature = 0.7
	DefaultAIMaxTokens   = 1000
	DefaultAITimeout     = 2 * time.Minute
	DefaultAIMaxRetries  = 2
	DefaultAIRetryDelay  = 2 * time.Second

	DefaultAIBreakerFailures = 5
	DefaultAIBreakerCooldown = time.Minute

	DefaultRetentionDays = 30

	DefaultIngestProgressEvery  = 100
	DefaultIngestHistoryPageMax = 100

	// Discord's per-message ceiling.
	DefaultSummaryMessageLimit = 2000

	DefaultBotDBTimeout     = 15 * time.Second
	DefaultBotImportTimeout = 30 * time.Minute
)

// DefaultAIPrompt is the system prompt used when a thread has no override.
const DefaultAIPrompt = `You are an assistant that summarizes and analyzes user feedback from a discussion thread.

The messages are written by users and moderators discussing features, issues, and ideas.

Your task:
- Write concise, neutral summaries in a professional tone suitable for a product or dev team review.
- Group similar feedback together and note any agreements or patterns.
- Include key context from replies, especially from users with [Mod] or [Dev] roles.
- Ignore jokes or unrelated chatter unless they provide relevant context.
- Format each major topic as a short paragraph or Markdown heading.

Context:
Users were encouraged to provide detailed, constructive feedback on usability, balance, gameplay, and quality-of-life improvements.
They were asked to explain **what** they want and **why**, avoiding vague comments.
`

// DefaultDevRoles and DefaultModRoles are matched case-insensitively against platform role names.
var (
	DefaultDevRoles = []string{"Developer", "Dev"}
	DefaultModRoles = []string{"Moderator", "Mod", "Admin"}
)

// DefaultTasks enables the retention sweep and weekly database maintenance.
var DefaultTasks = map[string]TaskConfig{
	"message_retention": {Enabled: true, Schedule: "0 3 * * *"},
	"sql_maintenance":   {Enabled: true, Schedule: "30 4 * * 0"},
}

// DefaultMessages holds the user-facing strings.
var DefaultMessages = MessagesConfig{
	NotAuthorized:    "⚠️ Only Devs, Mods, or the server owner can use bot commands.",
	UnknownCommand:   "❓ Unknown command. Use the commands command to see what is available.",
	GeneralError:     "❌ Something went wrong. Please try again later.",
	Generating:       "🧠 Generating summary... please wait.",
	ImportStarting:   "📥 Starting message import...",
	NoThreadsWatched: "No threads are currently being watched.",
}

// setDefaults registers every default on v so that unset keys and env-only keys resolve.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", false)
	v.SetDefault("platform", DefaultPlatform)

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.command_prefix", DefaultDiscordCommandPrefix)
	v.SetDefault("discord.state_max_messages", DefaultDiscordStateMaxMessages)
	v.SetDefault("telegram.token", "")

	v.SetDefault("database.driver", DefaultDBDriver)
	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.url", "")

	v.SetDefault("ai.provider", DefaultAIProvider)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.model", DefaultAIModel)
	v.SetDefault("ai.temperature", DefaultAITemperature)
	v.SetDefault("ai.max_tokens", DefaultAIMaxTokens)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("ai.max_retries", DefaultAIMaxRetries)
	v.SetDefault("ai.retry_delay", DefaultAIRetryDelay)
	v.SetDefault("ai.prompt", DefaultAIPrompt)
	v.SetDefault("ai.breaker_failures", DefaultAIBreakerFailures)
	v.SetDefault("ai.breaker_cooldown", DefaultAIBreakerCooldown)

	v.SetDefault("retention.days", DefaultRetentionDays)
	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("roles.dev", DefaultDevRoles)
	v.SetDefault("roles.mod", DefaultModRoles)

	v.SetDefault("ingest.skip_other_bots", true)
	v.SetDefault("ingest.progress_every", DefaultIngestProgressEvery)
	v.SetDefault("ingest.history_page_max", DefaultIngestHistoryPageMax)

	v.SetDefault("summary.message_limit", DefaultSummaryMessageLimit)

	v.SetDefault("bot.db_timeout", DefaultBotDBTimeout)
	v.SetDefault("bot.import_timeout", DefaultBotImportTimeout)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("messages.unknown_command", DefaultMessages.UnknownCommand)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.generating", DefaultMessages.Generating)
	v.SetDefault("messages.import_starting", DefaultMessages.ImportStarting)
	v.SetDefault("messages.no_threads_watched", DefaultMessages.NoThreadsWatched)
}
