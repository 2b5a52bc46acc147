package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`

	// MaxBodyBytes bounds request bodies accepted by the API.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// DatabaseConfig selects the relational backing store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is the driver-specific data source name. For sqlite it is a
	// file path; for postgres a libpq connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn"`

	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// QBTimeConfig holds settings for the external time-tracking service.
type QBTimeConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// Token is the server-side bearer credential. It is never echoed by
	// the API, only reported as configured or not.
	Token string `mapstructure:"token" yaml:"token"`

	// UseKeyring makes the server-side credential come from the system
	// keyring when Token is empty.
	UseKeyring bool `mapstructure:"use_keyring" yaml:"use_keyring"`

	PMGroup   string `mapstructure:"pm_group" yaml:"pm_group"`
	TechGroup string `mapstructure:"tech_group" yaml:"tech_group"`

	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	RatePerSec int `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
}

// CacheConfig selects the key-value backend of the local cache.
type CacheConfig struct {
	// Driver is "file" or "redis".
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Dir       string `mapstructure:"dir" yaml:"dir"`
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// SyncConfig tunes the write path to the remote store.
type SyncConfig struct {
	DebounceMs int `mapstructure:"debounce_ms" yaml:"debounce_ms"`

	// RemoteURL, if set, makes command-line tools sync through a running
	// server instead of opening the database directly.
	RemoteURL string `mapstructure:"remote_url" yaml:"remote_url"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DirectoryConfig controls background refresh of the reference data.
type DirectoryConfig struct {
	// RefreshCron is a cron spec; empty disables periodic refresh.
	RefreshCron string `mapstructure:"refresh_cron" yaml:"refresh_cron"`
}

// AppConfig is the top-level application configuration, resolved once at
// startup and passed into each component's constructor.
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	QBTime    QBTimeConfig    `mapstructure:"qbtime" yaml:"qbtime"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Directory DirectoryConfig `mapstructure:"directory" yaml:"directory"`
}

// Defaults.
const (
	DefaultBaseURL   = "https://rest.tsheets.com/api/v1"
	DefaultPMGroup   = "PROJECT MANAGERS"
	DefaultTechGroup = "TECHNICIANS"
)

// envBindings maps config keys to the environment variables that
// override them.
var envBindings = map[string]string{
	"server.listen":     "LISTEN_ADDR",
	"database.driver":   "DB_DRIVER",
	"database.dsn":      "DB_DSN",
	"qbtime.base_url":   "TSHEETS_BASE_URL",
	"qbtime.token":      "QBTIME_TOKEN",
	"qbtime.pm_group":   "QBTIME_PM_GROUP",
	"qbtime.tech_group": "QBTIME_TECH_GROUP",
	"cache.driver":      "CACHE_DRIVER",
	"cache.redis_addr":  "REDIS_ADDR",
	"sync.remote_url":   "SCHEDULE_REMOTE_URL",
	"log.level":         "LOG_LEVEL",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/workschedule/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "workschedule")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Listen:       "127.0.0.1:8080",
			MaxBodyBytes: 10 << 20,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			DSN:          filepath.Join(configDir(), "schedules.db"),
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		},
		QBTime: QBTimeConfig{
			BaseURL:    DefaultBaseURL,
			PMGroup:    DefaultPMGroup,
			TechGroup:  DefaultTechGroup,
			TimeoutSec: 30,
			RatePerSec: 5,
		},
		Cache: CacheConfig{
			Driver: "file",
			Dir:    filepath.Join(configDir(), "cache"),
		},
		Sync: SyncConfig{
			DebounceMs: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// newViper returns a Viper instance with defaults and environment
// bindings applied.
func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	d := defaultAppConfig()
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("qbtime.base_url", d.QBTime.BaseURL)
	v.SetDefault("qbtime.pm_group", d.QBTime.PMGroup)
	v.SetDefault("qbtime.tech_group", d.QBTime.TechGroup)
	v.SetDefault("qbtime.timeout_sec", d.QBTime.TimeoutSec)
	v.SetDefault("qbtime.rate_per_sec", d.QBTime.RatePerSec)
	v.SetDefault("cache.driver", d.Cache.Driver)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("sync.debounce_ms", d.Sync.DebounceMs)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults plus environment overrides apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		_, isPathErr := err.(*os.PathError)
		_, isNotFound := err.(viper.ConfigFileNotFoundError)
		if !isPathErr && !isNotFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	normalize(cfg)

	return cfg, nil
}

// normalize fills zero values that would otherwise break components.
func normalize(cfg *AppConfig) {
	cfg.QBTime.BaseURL = strings.TrimRight(cfg.QBTime.BaseURL, "/")
	if cfg.QBTime.BaseURL == "" {
		cfg.QBTime.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.QBTime.PMGroup) == "" {
		cfg.QBTime.PMGroup = DefaultPMGroup
	}
	if strings.TrimSpace(cfg.QBTime.TechGroup) == "" {
		cfg.QBTime.TechGroup = DefaultTechGroup
	}
	if cfg.QBTime.TimeoutSec <= 0 {
		cfg.QBTime.TimeoutSec = 30
	}
	if cfg.Sync.DebounceMs < 0 {
		cfg.Sync.DebounceMs = 0
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Cache.Driver = strings.ToLower(strings.TrimSpace(cfg.Cache.Driver))
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The server-side token is never
// written back.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	qb := cfg.QBTime
	qb.Token = ""

	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("qbtime", qb)
	v.Set("cache", cfg.Cache)
	v.Set("sync", cfg.Sync)
	v.Set("log", cfg.Log)
	v.Set("directory", cfg.Directory)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
