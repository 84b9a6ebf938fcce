package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Persistence modes for generated matches.
const (
	PersistenceStaged    = "staged"
	PersistenceImmediate = "immediate"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Server struct {
		Address     string   `env:"SERVER_ADDRESS" envDefault:":5250"`
		CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	Database struct {
		// Driver is either "sqlite" or "postgres"
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
		DSN    string `env:"DATABASE_URL" envDefault:"database/groundmatch.db"`
	}

	// Staged review sessions live in Redis when an address is set and in
	// process memory otherwise
	Redis struct {
		Address  string `env:"REDIS_ADDRESS"`
		Password string `env:"REDIS_PASSWORD"`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Matching struct {
		// Persistence selects between staged review sessions and pending rows
		Persistence string `env:"MATCH_PERSISTENCE" envDefault:"staged"`

		// Candidates with an aggregate below this score are dropped (0-100)
		MinScore float64 `env:"MATCH_MIN_SCORE" envDefault:"0"`

		// Lifetime of a staged review session
		SessionTTL time.Duration `env:"MATCH_SESSION_TTL" envDefault:"30m"`
	}

	Regeneration struct {
		// Maximum number of pending regeneration jobs
		QueueSize int `env:"REGEN_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent regeneration workers
		WorkerCount int `env:"REGEN_WORKER_COUNT" envDefault:"2"`

		// Maximum number of retries for a failed job
		MaxRetries int `env:"REGEN_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"REGEN_RETRY_DELAY" envDefault:"5"`

		// How often every company is re-enqueued, 0 disables the scheduler
		Interval time.Duration `env:"REGEN_INTERVAL" envDefault:"0"`
	}
}

// LoadConfig reads an optional .env file and parses the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Matching.Persistence {
	case PersistenceStaged, PersistenceImmediate:
	default:
		return fmt.Errorf("invalid MATCH_PERSISTENCE %q", c.Matching.Persistence)
	}
	if c.Matching.MinScore < 0 || c.Matching.MinScore > 100 {
		return fmt.Errorf("MATCH_MIN_SCORE must be between 0 and 100, got %v", c.Matching.MinScore)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}
