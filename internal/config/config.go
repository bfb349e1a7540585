// Package config provides unified configuration loading for the answer engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the answer engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Feedback      FeedbackConfig      `yaml:"feedback"`
	Cache         CacheConfig         `yaml:"cache"`
	Matching      MatchingConfig      `yaml:"matching"`
	Telegram      TelegramConfig      `yaml:"telegram"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// StorageConfig holds knowledge base persistence settings.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // json, sqlite or postgres
	JSON     JSONConfig     `yaml:"json"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// JSONConfig holds flat-file storage settings.
type JSONConfig struct {
	Path string `yaml:"path"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// SnapshotConfig holds index snapshot settings. The snapshot is a warm-start
// cache for the inverted index, never the source of truth.
type SnapshotConfig struct {
	Path string `yaml:"path"`
}

// FeedbackConfig holds feedback log settings.
type FeedbackConfig struct {
	Path       string `yaml:"path"`
	MaxRecords int    `yaml:"max_records"`
}

// CacheConfig holds match-result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory, redis or off
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// MatchingConfig holds match pipeline thresholds.
type MatchingConfig struct {
	FuzzyThreshold       float64 `yaml:"fuzzy_threshold"`
	ButtonFuzzyThreshold float64 `yaml:"button_fuzzy_threshold"`
	GlobalFuzzyThreshold float64 `yaml:"global_fuzzy_threshold"`
	RelaxedFactor        float64 `yaml:"relaxed_factor"`
}

// TelegramConfig holds Telegram webhook glue settings.
type TelegramConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Token         string        `yaml:"token"`
	APIBase       string        `yaml:"api_base"`
	WebhookSecret string        `yaml:"webhook_secret"`
	SendTimeout   time.Duration `yaml:"send_timeout"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8091,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "json",
			JSON: JSONConfig{
				Path: "knowledge_base.json",
			},
			SQLite: SQLiteConfig{
				Path:         "/tmp/answer-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
			Snapshot: SnapshotConfig{
				Path: "",
			},
		},
		Feedback: FeedbackConfig{
			Path:       "feedback_data.json",
			MaxRecords: 1000,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
			},
		},
		Matching: MatchingConfig{
			FuzzyThreshold:       0.4,
			ButtonFuzzyThreshold: 0.3,
			GlobalFuzzyThreshold: 0.35,
			RelaxedFactor:        0.8,
		},
		Telegram: TelegramConfig{
			Enabled:     false,
			APIBase:     "https://api.telegram.org",
			SendTimeout: 5 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "debug",
			LogFormat:   "json",
			ServiceName: "answer-engine",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case "json", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid storage driver: %s", c.Storage.Driver)
	}

	switch c.Cache.Driver {
	case "memory", "redis", "off":
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Matching.FuzzyThreshold <= 0 || c.Matching.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in (0, 1]")
	}

	if c.Matching.RelaxedFactor <= 0 || c.Matching.RelaxedFactor > 1 {
		return fmt.Errorf("relaxed_factor must be in (0, 1]")
	}

	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return fmt.Errorf("telegram enabled but no token configured")
	}

	if c.Feedback.MaxRecords < 1 {
		return fmt.Errorf("feedback max_records must be positive")
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("KNOWLEDGE_BASE_PATH"); v != "" {
		cfg.Storage.Driver = "json"
		cfg.Storage.JSON.Path = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Storage.Driver = "sqlite"
			cfg.Storage.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Storage.Driver = "postgres"
			cfg.Storage.Postgres.DSN = v
		}
	}

	if v := os.Getenv("FEEDBACK_PATH"); v != "" {
		cfg.Feedback.Path = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Enabled = true
		cfg.Telegram.Token = v
	}

	if v := os.Getenv("TELEGRAM_WEBHOOK_SECRET"); v != "" {
		cfg.Telegram.WebhookSecret = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
