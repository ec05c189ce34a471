package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct-tag rules and the cross-field rules that tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	}

	return nil
}

// ValidateServe checks the credentials only the long-running bot needs.
// Maintenance subcommands skip it so they run without platform or AI secrets.
func (c *Config) ValidateServe() error {
	switch c.Platform {
	case "discord":
		if c.Discord.Token == "" {
			return fmt.Errorf("%w: discord.token is required when platform is discord", ErrConfiguration)
		}
	case "telegram":
		if c.Telegram.Token == "" {
			return fmt.Errorf("%w: telegram.token is required when platform is telegram", ErrConfiguration)
		}
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("%w: ai.api_key is required", ErrConfiguration)
	}
	return nil
}
