// Package config loads CLI settings from airtable.yml, .env and AIRTABLE_*
// environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/conduit-lang/airtable/pkg/airtable"
	"github.com/conduit-lang/airtable/pkg/transport"
)

// FileName is the config file read from the working directory
const FileName = "airtable.yml"

// EnvPrefix prefixes every environment override, e.g. AIRTABLE_API_KEY
const EnvPrefix = "AIRTABLE"

// Cache backends
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config represents the CLI configuration
type Config struct {
	AppID   string        `mapstructure:"app_id" validate:"required"`
	APIKey  string        `mapstructure:"api_key" validate:"required"`
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
}

// CacheConfig selects and configures the record cache backend
type CacheConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=file memory redis"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig represents the redis backend settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
}

var validate = validator.New()

// Load reads the configuration from the working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom reads dir/.env, then dir/airtable.yml, then environment overrides,
// and validates the result
func LoadFrom(dir string) (*Config, error) {
	// .env is optional and never overrides variables already set
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := newViper()
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("app_id", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", transport.DefaultBaseURL)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("cache.backend", BackendFile)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "airtable:")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.file", "")
	v.SetDefault("log.development", false)

	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// validateConfig runs struct tags, then the cross-field rules
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Cache.Backend == BackendRedis && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when cache.backend is %q", BackendRedis)
	}
	return nil
}

// Client returns the library configuration for cfg
func (c *Config) Client() airtable.Config {
	return airtable.Config{
		AppID:    c.AppID,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		CacheDir: c.Cache.Dir,
		Timeout:  c.Timeout,
	}
}

// Write saves the credentials and endpoint to dir/airtable.yml. It refuses
// to overwrite an existing file unless force is set.
func Write(dir string, cfg *Config, force bool) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists", path)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("app_id", cfg.AppID)
	v.Set("api_key", cfg.APIKey)
	v.Set("base_url", cfg.BaseURL)
	v.Set("timeout", cfg.Timeout.String())
	v.Set("cache.backend", cfg.Cache.Backend)
	if cfg.Cache.Dir != "" {
		v.Set("cache.dir", cfg.Cache.Dir)
	}
	if cfg.Cache.Backend == BackendRedis {
		v.Set("cache.redis.addr", cfg.Cache.Redis.Addr)
		v.Set("cache.redis.db", cfg.Cache.Redis.DB)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
