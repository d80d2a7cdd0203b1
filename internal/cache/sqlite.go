package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jask/slipbook/internal/database/repository"
)

// SQLite stores entries in the cache_entries table under a key prefix.
type SQLite struct {
	db     *sql.DB
	repo   *repository.CacheRepo
	prefix string
}

func NewSQLite(db *sql.DB, prefix string) *SQLite {
	return &SQLite{db: db, repo: repository.NewCacheRepo(db), prefix: prefix}
}

// DB exposes the underlying handle for the repositories sharing the file.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	e, err := s.repo.Get(ctx, s.prefix+key)
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if e == nil {
		return "", false, nil
	}
	return e.Value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Upsert(ctx, s.prefix+key, value); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, s.prefix+key); err != nil {
		return fmt.Errorf("cache remove %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the prefix and leaves other namespaces alone.
func (s *SQLite) Clear(ctx context.Context) error {
	if err := s.repo.DeletePrefix(ctx, s.prefix); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }
