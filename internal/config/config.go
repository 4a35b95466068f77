// Package config reads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tinoosan/treasury/internal/catalog"
)

// Config is the resolved runtime configuration.
type Config struct {
	HTTPAddr        string
	DatabaseURL     string
	RedisAddress    string
	LogLevel        slog.Level
	LogFormat       string
	AccountCode     string
	ClassifierRules string
	ImportLockTTL   time.Duration
	ImportDir       string
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	DevSeed         bool
}

// Load reads .env files (missing ones are ignored; existing env vars win)
// and then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}
	c := Config{
		HTTPAddr:        get("HTTP_ADDR", ":8080"),
		DatabaseURL:     get("DATABASE_URL", ""),
		RedisAddress:    get("REDIS_ADDRESS", ""),
		LogLevel:        ParseLogLevel(getenv("LOG_LEVEL")),
		LogFormat:       strings.ToLower(get("LOG_FORMAT", "json")),
		AccountCode:     get("TREASURY_ACCOUNT_CODE", catalog.DefaultAccountCode),
		ClassifierRules: get("CLASSIFIER_RULES", ""),
		ImportDir:       get("IMPORT_DIR", ""),
		JWTSecret:       get("JWT_HS256_SECRET", ""),
		JWTIssuer:       get("JWT_ISSUER", ""),
		JWTAudience:     get("JWT_AUDIENCE", ""),
		DevSeed:         truthy(getenv("DEV_SEED")),
		ImportLockTTL:   10 * time.Minute,
	}
	if v := get("IMPORT_LOCK_TTL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("IMPORT_LOCK_TTL: invalid duration %q", v)
		}
		c.ImportLockTTL = d
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return Config{}, fmt.Errorf("LOG_FORMAT: want json or text, got %q", c.LogFormat)
	}
	return c, nil
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// ParseLogLevel maps env values to a slog level; unknown values mean info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds the slog logger described by c.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
