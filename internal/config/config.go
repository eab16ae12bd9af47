// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/pieme/nzpoints/internal/store"
)

// Config holds settings shared by every nzpoints command.
type Config struct {
	DataDir   string `env:"NZPOINTS_DATA_DIR"`
	Rules     string `env:"NZPOINTS_RULES" envDefault:"nz-smc"`
	RulesFile string `env:"NZPOINTS_RULES_FILE"`
	HTTPAddr  string `env:"NZPOINTS_HTTP_ADDR" envDefault:":8080"`
	LogLevel  string `env:"NZPOINTS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"NZPOINTS_LOG_FORMAT" envDefault:"json"`
}

// Load reads .env files (when present) and then the environment. Values
// already set in the environment win over .env entries.
func Load(dotenv ...string) (*Config, error) {
	if err := godotenv.Load(dotenv...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = store.DefaultConfig().DataDir
	}
	return &cfg, nil
}

// Store returns the session store configuration.
func (c *Config) Store() store.Config {
	return store.Config{DataDir: c.DataDir}
}
