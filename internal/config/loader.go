package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every dotted key when read from the environment,
// e.g. THREADSCRIBE_AI_MODEL for ai.model.
const EnvPrefix = "THREADSCRIBE"

// legacyEnv maps config keys to the bare variable names used by earlier deployments.
var legacyEnv = map[string][]string{
	"discord.token":  {"DISCORD_TOKEN"},
	"telegram.token": {"TELEGRAM_TOKEN"},
	"ai.api_key":     {"OPENAI_KEY", "GEMINI_API_KEY"},
	"database.url":   {"DATABASE_URL"},
}

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path (optional; a missing file is not an error)
// 3. THREADSCRIBE_* and legacy environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("%w: failed to bind env for %s: %v", ErrConfiguration, key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// normalize fills derived values that depend on more than one key.
func (c *Config) normalize() {
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	c.Log.Level = strings.ToLower(c.Log.Level)

	// A postgres DATABASE_URL selects the postgres driver on its own.
	if strings.HasPrefix(c.Database.URL, "postgres://") || strings.HasPrefix(c.Database.URL, "postgresql://") {
		c.Database.Driver = "postgres"
	}
	// sqlite:///path/to.db as used by older deployments.
	if path, ok := strings.CutPrefix(c.Database.URL, "sqlite:///"); ok && path != "" {
		c.Database.Driver = "sqlite"
		c.Database.Path = path
		c.Database.URL = ""
	}
}
