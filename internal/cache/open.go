package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jask/slipbook/internal/config"
	"github.com/jask/slipbook/internal/database"
)

// Backend is a Store that owns a connection.
type Backend interface {
	Store
	io.Closer
}

// Open builds the backend selected by cfg.Driver. The sqlite backend runs
// migrations and seeds a default profile on first use.
func Open(ctx context.Context, cfg config.CacheConfig) (Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		return openSQLite(ctx, cfg)
	case "redis":
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.Prefix)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}

func openSQLite(ctx context.Context, cfg config.CacheConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache.path is required for the sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir cache dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Path); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	if err := database.SeedDefaults(ctx, db, cfg.Prefix+KeyProfile); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed defaults: %w", err)
	}
	return NewSQLite(db, cfg.Prefix), nil
}
