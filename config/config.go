/*
Package config loads runtime configuration from the environment.

Only this struct should hold configuration values; components receive what
they need at construction time. No globals, no direct env access elsewhere.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR,default=:8080"`
	DBPath     string `env:"DB_PATH,default=studio.db"`

	// Comma-separated list of allowed CORS origins.
	CORSOrigins string `env:"CORS_ORIGINS,default=http://localhost:5173"`

	// Days after the last payment during which an owing staff member still
	// counts as "current".
	PaymentGraceDays int `env:"PAYMENT_GRACE_DAYS,default=7"`

	LogLevel string `env:"LOG_LEVEL,default=info"`

	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT,default=15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT,default=30s"`
}

// Load reads an optional .env file, then the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	c := &Config{}
	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return c, nil
}

// GracePeriod converts the configured day count to a duration.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.PaymentGraceDays) * 24 * time.Hour
}

// Origins splits the CORS origin list.
func (c *Config) Origins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
