// Package config loads server settings from the environment. A .env file in
// the working directory is read first when present; real environment
// variables win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Addr             string        `env:"ADDR" envDefault:":8080"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment   bool          `env:"LOG_DEVELOPMENT"`
	RandomSeed       int64         `env:"RANDOM_SEED"` // 0 picks a seed from crypto/rand
	CORSOrigins      []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:*,http://127.0.0.1:*"`
	RateLimitRPS     float64       `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst   int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	MaxLobbies       int           `env:"MAX_LOBBIES" envDefault:"1000"`
	LobbyInboxSize   int           `env:"LOBBY_INBOX_SIZE" envDefault:"64"`
	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER" envDefault:"16"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the given dotenv files (".env" when none are named), parses the
// environment and validates the result. Missing dotenv files are ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var err error
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("ADDR must not be empty"))
	}
	if _, lerr := zapcore.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("LOG_LEVEL: %w", lerr))
	}
	if c.RateLimitRPS <= 0 {
		err = multierr.Append(err, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		err = multierr.Append(err, fmt.Errorf("RATE_LIMIT_BURST must be at least 1, got %d", c.RateLimitBurst))
	}
	if c.MaxLobbies < 0 {
		err = multierr.Append(err, fmt.Errorf("MAX_LOBBIES must not be negative, got %d", c.MaxLobbies))
	}
	if c.LobbyInboxSize < 1 {
		err = multierr.Append(err, fmt.Errorf("LOBBY_INBOX_SIZE must be at least 1, got %d", c.LobbyInboxSize))
	}
	if c.SubscriberBuffer < 1 {
		err = multierr.Append(err, fmt.Errorf("SUBSCRIBER_BUFFER must be at least 1, got %d", c.SubscriberBuffer))
	}
	if c.ShutdownTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout))
	}
	return err
}

// Level is the parsed LOG_LEVEL. Validate has already rejected bad values.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
