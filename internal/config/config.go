package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v9"
)

// Config is read once per cold start. The API key is deliberately absent:
// it is fetched on every invocation through a param.Fetcher.
type Config struct {
	KeyEnv   string `env:"GEMINI_API_KEY_ENV" envDefault:"GEMINI_API_KEY"`
	KeyParam string `env:"GEMINI_API_KEY_PARAM"`
	Model    string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-image-preview"`
	BaseURL  string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`

	Language string     `env:"DEFAULT_LANGUAGE" envDefault:"ja"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	Bucket     string `env:"ARCHIVE_BUCKET"`
	ArchiveDir string `env:"ARCHIVE_DIR"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, nil
}

// KeyName is the name handed to the key fetcher: the SSM parameter path when
// one is configured, otherwise the environment variable.
func (c Config) KeyName() string {
	if c.KeyParam != "" {
		return c.KeyParam
	}
	return c.KeyEnv
}
