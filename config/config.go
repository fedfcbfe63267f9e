/*
Package config loads runtime settings for the server and CLI.

SOURCES (later wins):
  1. defaults below
  2. .env file, if present (never overrides variables already set)
  3. environment, prefixed SALARY_ (SALARY_PORT, SALARY_DB_PATH, ...)
  4. command-line flags, applied by the caller via Set

KEYS:
  port              HTTP port of the API server          8080
  db_path           SQLite path, ":memory:" for scratch  salary.db
  log_level         debug | info | warn | error          info
  log_format        text | json                          text
  cors_origins      comma-separated allowed origins      *
  shutdown_timeout  graceful shutdown budget             30s
  demo              load the demo school on startup      false
  server_url        API base URL used by salaryctl       http://localhost:8080
  request_timeout   per-request timeout of salaryctl     10s
*/
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "SALARY"

// Config is the resolved configuration.
type Config struct {
	Port            int
	DBPath          string
	LogLevel        string
	LogFormat       string
	CORSOrigins     []string
	ShutdownTimeout time.Duration
	Demo            bool
	ServerURL       string
	RequestTimeout  time.Duration
}

// Loader wraps a viper instance so flags can be layered on top of the
// environment before Resolve is called.
type Loader struct {
	v *viper.Viper
}

// NewLoader reads defaults, the optional dotenv file and the environment.
// An empty dotEnvPath means ".env" in the working directory.
func NewLoader(dotEnvPath string) (*Loader, error) {
	if dotEnvPath == "" {
		dotEnvPath = ".env"
	}
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, fmt.Errorf("config.godotenv(%s): %w", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config.os.Stat(%s): %w", dotEnvPath, err)
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "salary.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("demo", false)
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("request_timeout", 10*time.Second)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	return &Loader{v: v}, nil
}

// Set overrides a key, typically from an explicitly passed flag.
func (l *Loader) Set(key string, value any) {
	l.v.Set(key, value)
}

// Resolve returns the validated configuration.
func (l *Loader) Resolve() (*Config, error) {
	cfg := &Config{
		Port:            l.v.GetInt("port"),
		DBPath:          l.v.GetString("db_path"),
		LogLevel:        strings.ToLower(l.v.GetString("log_level")),
		LogFormat:       strings.ToLower(l.v.GetString("log_format")),
		CORSOrigins:     splitList(l.v.GetStringSlice("cors_origins")),
		ShutdownTimeout: l.v.GetDuration("shutdown_timeout"),
		Demo:            l.v.GetBool("demo"),
		ServerURL:       strings.TrimRight(l.v.GetString("server_url"), "/"),
		RequestTimeout:  l.v.GetDuration("request_timeout"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: port %d out of range", cfg.Port)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("config: db_path is empty")
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("config: unknown log_format %q", cfg.LogFormat)
	}
	return cfg, nil
}

// Load is NewLoader followed by Resolve.
func Load(dotEnvPath string) (*Config, error) {
	l, err := NewLoader(dotEnvPath)
	if err != nil {
		return nil, err
	}
	return l.Resolve()
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// =============================================================================
// LOGGING
// =============================================================================

// ParseLevel maps a level name to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log_level %q", s)
}

// NewLogger builds the process logger.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// splitList accepts both a real list and a single comma-separated value,
// which is what an environment variable yields.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
