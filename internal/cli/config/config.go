package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the docmap configuration
type Config struct {
	Schema string      `mapstructure:"schema"`
	Log    LogConfig   `mapstructure:"log"`
	Store  StoreConfig `mapstructure:"store"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// StoreConfig represents document store configuration
type StoreConfig struct {
	Backend string        `mapstructure:"backend"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig represents redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Load loads the configuration. An empty path looks for docmap.yml or
// docmap.yaml in the working directory and falls back to defaults when
// there is none. Environment variables prefixed with DOCMAP_ override both,
// e.g. DOCMAP_STORE_REDIS_ADDR.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("schema", "schema.yml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.prefix", "docmap:")
	v.SetDefault("store.ttl", time.Duration(0))
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("docmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix("DOCMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Schema paths in a config file are relative to that file
	if used := v.ConfigFileUsed(); used != "" && config.Schema != "" && !filepath.IsAbs(config.Schema) {
		config.Schema = filepath.Join(filepath.Dir(used), config.Schema)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// SchemaExists reports whether the configured schema file is present
func (c *Config) SchemaExists() bool {
	_, err := os.Stat(c.Schema)
	return err == nil
}

// Logger builds a zap logger at the configured level
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func parseLevel(s string) (zapcore.Level, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Store.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got: %s", BackendMemory, BackendRedis, cfg.Store.Backend)
	}
	if cfg.Store.Backend == BackendRedis && cfg.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required for the redis backend")
	}
	if cfg.Store.TTL < 0 {
		return fmt.Errorf("store.ttl must not be negative, got: %s", cfg.Store.TTL)
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}
