// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath   string `env:"DB_PATH" envDefault:"./data/geoquiz.db"`

	RegionsFile         string `env:"REGIONS_FILE"`
	RegionsNameProperty string `env:"REGIONS_NAME_PROPERTY" envDefault:"name"`

	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"geoquiz_token"`
	Production     bool   `env:"PRODUCTION" envDefault:"false"`

	NATSURL string `env:"NATS_URL"`

	TickInterval   time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	GameLives      int           `env:"GAME_LIVES" envDefault:"3"`
	GameDuration   time.Duration `env:"GAME_DURATION" envDefault:"90s"`
	SessionIdleTTL time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"`
}

// Load reads an optional .env file, then parses the environment into Config.
// Variables already set in the environment win over .env entries.
func Load(files ...string) (Config, error) {
	_ = godotenv.Load(files...)
	return Parse()
}

// Parse reads Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DurationSeconds is GameDuration in whole seconds, the unit the engine counts in.
func (c Config) DurationSeconds() int { return int(c.GameDuration / time.Second) }

func (c Config) validate() error {
	switch {
	case c.GameLives <= 0:
		return fmt.Errorf("GAME_LIVES must be positive, got %d", c.GameLives)
	case c.GameDuration < time.Second:
		return fmt.Errorf("GAME_DURATION must be at least 1s, got %s", c.GameDuration)
	case c.TickInterval <= 0:
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	case c.SessionIdleTTL <= 0:
		return fmt.Errorf("SESSION_IDLE_TTL must be positive, got %s", c.SessionIdleTTL)
	case c.JWTExpiresDays <= 0:
		return fmt.Errorf("JWT_EXPIRES_DAYS must be positive, got %d", c.JWTExpiresDays)
	}
	return nil
}
