package config

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Cache.Driver)
	require.Equal(t, "slipbook:", cfg.Cache.Prefix)
	require.Equal(t, 10*time.Second, cfg.Remote.Timeout)
	require.False(t, cfg.Remote.Enabled())
	require.Equal(t, "info", cfg.Log.Level)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	want := Config{
		Cache:  CacheConfig{Driver: "redis", Path: "/tmp/c.db", RedisAddr: "cache:6379", RedisDB: 2, Prefix: "sb:"},
		Remote: RemoteConfig{Driver: "postgres", DSN: "host=db user=sb", Timeout: 3 * time.Second},
		Log:    LogConfig{Level: "debug", Format: "json"},
	}
	require.NoError(t, Save(path, want))

	got, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.True(t, got.Remote.Enabled())
}

func TestDefaultsIgnoreConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.Equal(t, filepath.Join(home, ".config", "slipbook", "config.toml"), DefaultPath())
	require.NoError(t, Save("", Config{Cache: CacheConfig{Driver: "memory"}, Remote: RemoteConfig{Timeout: time.Second}}))

	fromFile, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, "memory", fromFile.Cache.Driver)

	defaults, err := Defaults()
	require.NoError(t, err)
	require.Equal(t, "sqlite", defaults.Cache.Driver)
	require.Equal(t, 10*time.Second, defaults.Remote.Timeout)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SLIPBOOK_CACHE_DRIVER", "memory")
	t.Setenv("SLIPBOOK_REMOTE_DRIVER", "sqlite")
	t.Setenv("SLIPBOOK_REMOTE_DSN", "remote.db")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Cache.Driver)
	require.True(t, cfg.Remote.Enabled())
}

func TestLoadFileMissingExplicitPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLogError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logg := NewLogger(LogConfig{Level: "bogus", Format: "json"})
	logg.SetOutput(&buf)
	require.Equal(t, logrus.InfoLevel, logg.GetLevel())

	LogError(logg, "service", "Add", "remote create", map[string]any{"key": "k1"}, errors.New("boom"))
	out := buf.String()
	require.Contains(t, out, `"funcName":"Add"`)
	require.Contains(t, out, `"msg":"boom"`)
	require.Contains(t, out, `"module":"service"`)
}
