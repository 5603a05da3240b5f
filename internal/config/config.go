package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port           string        `env:"LARDER_PORT"             envDefault:"8080"`
	DBPath         string        `env:"LARDER_DB_PATH"          envDefault:"larder.db"`
	LogLevel       string        `env:"LARDER_LOG_LEVEL"        envDefault:"info"`
	LogFormat      string        `env:"LARDER_LOG_FORMAT"       envDefault:"text"`
	JWTSecret      string        `env:"LARDER_JWT_SECRET"`
	TokenTTL       time.Duration `env:"LARDER_TOKEN_TTL"        envDefault:"168h"`
	JoinRateLimit  int           `env:"LARDER_JOIN_RATE_LIMIT"  envDefault:"10"`
	JoinRateWindow time.Duration `env:"LARDER_JOIN_RATE_WINDOW" envDefault:"1m"`
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("LARDER_JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("LARDER_TOKEN_TTL must be positive")
	}
	if c.JoinRateLimit <= 0 || c.JoinRateWindow <= 0 {
		return errors.New("LARDER_JOIN_RATE_LIMIT and LARDER_JOIN_RATE_WINDOW must be positive")
	}
	return nil
}
