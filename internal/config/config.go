// Package config provides configuration types, defaults, loading and
// persistence for taskdeck.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/taskdeck/internal/log"
	"github.com/zjrosen/taskdeck/internal/query"
	"github.com/zjrosen/taskdeck/internal/tracing"
	"github.com/zjrosen/taskdeck/internal/transport"
)

// Session store backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration options for taskdeck.
type Config struct {
	API     APIConfig      `mapstructure:"api"`
	Session SessionConfig  `mapstructure:"session"`
	Tasks   TasksConfig    `mapstructure:"tasks"`
	UI      UIConfig       `mapstructure:"ui"`
	Tracing tracing.Config `mapstructure:"tracing"`
	Debug   bool           `mapstructure:"debug"`
	LogPath string         `mapstructure:"log_path"`
}

// APIConfig configures the transport client.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SessionConfig selects where the session is persisted.
type SessionConfig struct {
	Backend        string `mapstructure:"backend"` // sqlite (default), redis or memory
	Path           string `mapstructure:"path"`    // sqlite database file
	RedisAddr      string `mapstructure:"redis_addr"`
	RedisKeyPrefix string `mapstructure:"redis_key_prefix"`
	Watch          bool   `mapstructure:"watch"` // reload when another process writes the sqlite store
}

// TasksConfig holds task list defaults.
type TasksConfig struct {
	PageSize         int           `mapstructure:"page_size"`
	DefaultSort      string        `mapstructure:"default_sort"`
	DocumentCacheTTL time.Duration `mapstructure:"document_cache_ttl"`
}

// UIConfig holds browser options.
type UIConfig struct {
	ShowCounts bool `mapstructure:"show_counts"`
}

// DefaultBaseURL is the API address of a local development server.
const DefaultBaseURL = "http://localhost:5000/api"

// DefaultConfigDir returns ~/.config/taskdeck, or "" if the home directory
// is unavailable.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "taskdeck")
}

// DefaultSessionPath returns the default sqlite session file.
func DefaultSessionPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "session.db")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	tc.FilePath = DefaultTracesFilePath()
	return Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   30 * time.Second,
			UserAgent: "taskdeck",
		},
		Session: SessionConfig{
			Backend:        BackendSQLite,
			Path:           DefaultSessionPath(),
			RedisAddr:      "localhost:6379",
			RedisKeyPrefix: "taskdeck",
			Watch:          true,
		},
		Tasks: TasksConfig{
			PageSize:         query.DefaultLimit,
			DefaultSort:      string(query.DefaultSort),
			DocumentCacheTTL: 10 * time.Minute,
		},
		UI: UIConfig{
			ShowCounts: true,
		},
		Tracing: tc,
	}
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// Normalize expands paths in cfg.
func (c Config) Normalize() Config {
	c.Session.Path = ExpandPath(c.Session.Path)
	c.Tracing.FilePath = ExpandPath(c.Tracing.FilePath)
	c.LogPath = ExpandPath(c.LogPath)
	return c
}

// Validate reports the first invalid field of cfg. Paths are expected to
// be expanded already.
func Validate(cfg Config) error {
	if _, err := transport.ParseBaseURL(cfg.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout: must not be negative")
	}
	if err := ValidateSession(cfg.Session); err != nil {
		return err
	}
	if cfg.Tasks.PageSize < 1 {
		return fmt.Errorf("tasks.page_size: must be at least 1, got %d", cfg.Tasks.PageSize)
	}
	if _, err := query.ParseSort(cfg.Tasks.DefaultSort); err != nil {
		return fmt.Errorf("tasks.default_sort: %w", err)
	}
	if cfg.Tasks.DocumentCacheTTL < 0 {
		return fmt.Errorf("tasks.document_cache_ttl: must not be negative")
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateSession checks the session backend configuration.
func ValidateSession(s SessionConfig) error {
	switch s.Backend {
	case BackendSQLite:
		if s.Path == "" || !filepath.IsAbs(s.Path) {
			return fmt.Errorf("session.path: must be an absolute path, got %q", s.Path)
		}
	case BackendRedis:
		if s.RedisAddr == "" {
			return fmt.Errorf("session.redis_addr: required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("session.backend: unknown backend %q (want sqlite, redis or memory)", s.Backend)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
func ValidateTracing(t tracing.Config) error {
	if !t.Enabled {
		return nil
	}
	switch t.Exporter {
	case tracing.ExporterNone, tracing.ExporterStdout:
	case tracing.ExporterFile:
		if t.FilePath == "" {
			return fmt.Errorf("tracing.file_path: required for the file exporter")
		}
	case tracing.ExporterOTLP:
		if t.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint: required for the otlp exporter")
		}
	default:
		return fmt.Errorf("tracing.exporter: unknown exporter %q (want none, file, stdout or otlp)", t.Exporter)
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate: must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# taskdeck configuration

# Task API
api:
  base_url: ` + DefaultBaseURL + `
  timeout: 30s          # per-request timeout of the HTTP client
  user_agent: taskdeck

# Where the login session is kept between runs
session:
  backend: sqlite       # sqlite (default), redis or memory
  path: ~/.config/taskdeck/session.db
  # redis_addr: localhost:6379
  # redis_key_prefix: taskdeck
  watch: true           # pick up logins and logouts made by other taskdeck processes

# Task list defaults
tasks:
  page_size: 10
  default_sort: -due_date   # comma separated fields, "-" prefix for descending
  document_cache_ttl: 10m   # 0 disables the download cache

# Browser settings
ui:
  show_counts: true

# Distributed tracing of API requests
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/taskdeck/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
