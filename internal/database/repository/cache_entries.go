package repository

import (
	"context"
	"database/sql"
	"strings"
)

// CacheRepo handles the key/value documents of the local cache.
type CacheRepo struct {
	db *sql.DB
}

func NewCacheRepo(db *sql.DB) *CacheRepo { return &CacheRepo{db: db} }

// Get returns nil, nil when key is absent.
func (r *CacheRepo) Get(ctx context.Context, key string) (*CacheEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT key, value, updated_at FROM cache_entries WHERE key = ?`, key)
	var e CacheEntry
	if err := row.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *CacheRepo) Upsert(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO cache_entries(key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
	 value=excluded.value,
	 updated_at=CURRENT_TIMESTAMP;
	`, key, value)
	return err
}

func (r *CacheRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// DeletePrefix removes every key starting with prefix; an empty prefix
// empties the table.
func (r *CacheRepo) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries`)
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key LIKE ? ESCAPE '\'`, likePrefix(prefix))
	return err
}

// List returns the entries under prefix ordered by key.
func (r *CacheRepo) List(ctx context.Context, prefix string) ([]CacheEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM cache_entries WHERE key LIKE ? ESCAPE '\' ORDER BY key`, likePrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CacheEntry
	for rows.Next() {
		var e CacheEntry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func likePrefix(prefix string) string {
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	return esc + "%"
}
