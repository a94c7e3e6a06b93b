package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/zjrosen/taskdeck/internal/log"
)

// EnvPrefix prefixes environment overrides, e.g. TASKDECK_API_BASE_URL.
const EnvPrefix = "TASKDECK"

// LocalConfigPath is the project-local config file, relative to the working
// directory.
const LocalConfigPath = ".taskdeck/config.yaml"

// SetDefaults registers every default with v so env overrides apply to
// keys absent from the file.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("session.backend", d.Session.Backend)
	v.SetDefault("session.path", d.Session.Path)
	v.SetDefault("session.redis_addr", d.Session.RedisAddr)
	v.SetDefault("session.redis_key_prefix", d.Session.RedisKeyPrefix)
	v.SetDefault("session.watch", d.Session.Watch)
	v.SetDefault("tasks.page_size", d.Tasks.PageSize)
	v.SetDefault("tasks.default_sort", d.Tasks.DefaultSort)
	v.SetDefault("tasks.document_cache_ttl", d.Tasks.DocumentCacheTTL)
	v.SetDefault("ui.show_counts", d.UI.ShowCounts)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("debug", false)
	v.SetDefault("log_path", "")
}

// Load reads configuration into v. Lookup order: explicit path, then
// LocalConfigPath, then ~/.config/taskdeck/config.yaml. When none exists
// and writeDefault is set, a commented default is written to
// LocalConfigPath. A missing explicit file is not an error. The returned
// path is the file used, or "".
func Load(v *viper.Viper, explicit string, writeDefault bool) (Config, string, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case explicit != "":
		v.SetConfigFile(explicit)
	case fileExists(LocalConfigPath):
		v.SetConfigFile(LocalConfigPath)
	default:
		if dir := DefaultConfigDir(); dir != "" {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, "", fmt.Errorf("reading config: %w", err)
		}
		log.Debug(log.CatConfig, "No config file found, using defaults")
		if writeDefault && explicit == "" {
			if writeErr := WriteDefaultConfig(LocalConfigPath); writeErr == nil {
				v.SetConfigFile(LocalConfigPath)
				if err := v.ReadInConfig(); err != nil {
					return Config{}, "", fmt.Errorf("reading default config: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decoding config: %w", err)
	}
	cfg = cfg.Normalize()

	used := v.ConfigFileUsed()
	if used != "" {
		if abs, err := filepath.Abs(used); err == nil {
			used = abs
		}
	}
	log.Debug(log.CatConfig, "Config loaded", "path", used, "backend", cfg.Session.Backend, "api", cfg.API.BaseURL)
	return cfg, used, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
