package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL     string        `envconfig:"DATABASE_URL" required:"true"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	JanitorInterval time.Duration `envconfig:"JANITOR_INTERVAL" default:"1m"`
	OAuthClockSkew  time.Duration `envconfig:"OAUTH_CLOCK_SKEW" default:"5m"`
	HelplineURL     string        `envconfig:"HELPLINE_URL" default:"mailto:support@example.edu"`
	Version         string        `envconfig:"VERSION" default:"dev"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
