package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Cache  CacheConfig
	Remote RemoteConfig
	Log    LogConfig
}

// CacheConfig selects the device-local cache backend.
type CacheConfig struct {
	Driver    string // sqlite | redis | memory
	Path      string
	RedisAddr string `mapstructure:"redis_addr"`
	RedisDB   int    `mapstructure:"redis_db"`
	Prefix    string
}

// RemoteConfig points at the authoritative relational store.
type RemoteConfig struct {
	Driver  string // sqlite | postgres | mysql | none
	DSN     string
	Timeout time.Duration
}

// Enabled reports whether a remote store is configured.
func (r RemoteConfig) Enabled() bool {
	d := strings.ToLower(strings.TrimSpace(r.Driver))
	return d != "" && d != "none" && strings.TrimSpace(r.DSN) != ""
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string // json | text
}

// Load reads configuration from the file named by SLIPBOOK_CONFIG (or the
// default location) and the environment. Env var overrides use prefix SLIPBOOK_.
func Load() (Config, error) {
	return LoadFile(os.Getenv("SLIPBOOK_CONFIG"))
}

// DefaultPath is the config file used when none is named.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "slipbook", "config.toml")
}

// LoadFile is Load with an explicit config file; an empty path falls back to
// ~/.config/slipbook/config.toml when present.
func LoadFile(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// Defaults returns the built-in settings with environment overrides applied.
// No config file is read.
func Defaults() (Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix("SLIPBOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "slipbook", "cache.db"))
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", "slipbook:")
	v.SetDefault("remote.driver", "none")
	v.SetDefault("remote.dsn", "")
	v.SetDefault("remote.timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Save writes the provided config to path, creating the directory if needed.
func Save(path string, cfg Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("cache.driver", cfg.Cache.Driver)
	v.Set("cache.path", cfg.Cache.Path)
	v.Set("cache.redis_addr", cfg.Cache.RedisAddr)
	v.Set("cache.redis_db", cfg.Cache.RedisDB)
	v.Set("cache.prefix", cfg.Cache.Prefix)
	v.Set("remote.driver", cfg.Remote.Driver)
	v.Set("remote.dsn", cfg.Remote.DSN)
	v.Set("remote.timeout", cfg.Remote.Timeout.String())
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
