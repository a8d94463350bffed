// Package config loads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port            int
	DBDriver        string
	DBPath          string
	DatabaseURL     string
	JWTSecret       string
	TokenTTL        time.Duration
	AdminEmail      string
	AdminPassword   string
	RateLimit       RateLimit
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// RateLimit configures the per-caller token bucket on write routes.
type RateLimit struct {
	RPS   float64
	Burst int
}

// Load reads envFiles (default ".env") into the process environment without
// overriding variables that are already set, then builds a Config. Missing
// env files are ignored; malformed values are not.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: loading %s: %w", f, err)
		}
	}

	p := &parser{}
	cfg := Config{
		Port:          p.envInt("PORT", 8080),
		DBDriver:      strings.ToLower(envString("DB_DRIVER", DriverSQLite)),
		DBPath:        envString("DB_PATH", "data/articles.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      p.envDuration("TOKEN_TTL", 24*time.Hour),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		RateLimit: RateLimit{
			RPS:   p.envFloat("RATE_LIMIT_RPS", 5),
			Burst: p.envInt("RATE_LIMIT_BURST", 10),
		},
		LogLevel:        strings.ToLower(envString("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(envString("LOG_FORMAT", "text")),
		ShutdownTimeout: p.envDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once so a misconfigured deploy fails
// with the full list.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: PORT %d out of range", c.Port))
	}
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("config: DB_PATH is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("config: DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("config: JWT_SECRET must be at least 16 characters"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("config: TOKEN_TTL must be positive"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("config: ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("config: RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}
	return l, nil
}

// Addr is the listen address for http.Server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parser collects parse failures so Load can report all of them.
type parser struct {
	errs []error
}

func (p *parser) envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: invalid number %q", key, v))
		return def
	}
	return f
}

func (p *parser) envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("config: %s: invalid duration %q", key, v))
		return def
	}
	return d
}
