package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"arena"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"arena"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"arena"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3001"`

	// External move engine
	EngineURL     string        `env:"ENGINE_URL" envDefault:"http://localhost:8080"`
	EngineTimeout time.Duration `env:"ENGINE_TIMEOUT" envDefault:"60s"`

	// Match pacing
	DefaultMoveDelay time.Duration `env:"DEFAULT_MOVE_DELAY" envDefault:"1s"`
	MaxMoveDelay     time.Duration `env:"MAX_MOVE_DELAY" envDefault:"10s"`

	// Odds
	ExpectedMoveCount float64 `env:"EXPECTED_MOVE_COUNT" envDefault:"40"`

	// Leaderboard cache
	LeaderboardTTL time.Duration `env:"LEADERBOARD_TTL" envDefault:"30s"`

	// Bet placement guards
	BetRateLimit   int           `env:"BET_RATE_LIMIT" envDefault:"30"`
	BetRateWindow  time.Duration `env:"BET_RATE_WINDOW" envDefault:"1m"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"1h"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration values that would misbehave silently.
func (c *Config) Validate() error {
	if c.ExpectedMoveCount <= 0 {
		return fmt.Errorf("EXPECTED_MOVE_COUNT must be positive, got %v", c.ExpectedMoveCount)
	}
	if c.DefaultMoveDelay < 0 || c.DefaultMoveDelay > c.MaxMoveDelay {
		return fmt.Errorf("DEFAULT_MOVE_DELAY %v out of range [0, %v]", c.DefaultMoveDelay, c.MaxMoveDelay)
	}
	if c.BetRateLimit <= 0 || c.BetRateWindow <= 0 {
		return fmt.Errorf("bet rate limit %d/%v must be positive", c.BetRateLimit, c.BetRateWindow)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %v", c.IdempotencyTTL)
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
