// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken   string        `env:"DISCORD_TOKEN,required,notEmpty"`
	StoragePath    string        `env:"STORAGE_PATH" envDefault:"datastore.json"`
	CommandPrefix  string        `env:"COMMAND_PREFIX" envDefault:"!"`
	StatusAddr     string        `env:"STATUS_ADDR"`
	YouTubeProxy   string        `env:"YOUTUBE_PROXY"`
	FFmpegPath     string        `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	ResolveTimeout time.Duration `env:"RESOLVE_TIMEOUT" envDefault:"30s"`
	DefaultVolume  int           `env:"DEFAULT_VOLUME" envDefault:"5"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFile        string        `env:"LOG_FILE"`
}

// StorageConfig is the subset of Config needed by offline tools.
type StorageConfig struct {
	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`
}

// LoadDotEnv loads .env files into the environment. A missing file is not
// an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// New parses the environment into a Config.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CommandPrefix == "" {
		return nil, errors.New("COMMAND_PREFIX cannot be empty")
	}
	if cfg.DefaultVolume < 1 || cfg.DefaultVolume > 10 {
		return nil, fmt.Errorf("DEFAULT_VOLUME must be between 1 and 10, got %d", cfg.DefaultVolume)
	}
	return &cfg, nil
}

// NewStorage parses only the storage settings, so tools that never connect
// to Discord run without DISCORD_TOKEN.
func NewStorage() (*StorageConfig, error) {
	var cfg StorageConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
