package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jask/slipbook/internal/database/repository"
	"github.com/jask/slipbook/internal/slip"
)

// SeedDefaults writes a default profile document under profileKey when the
// cache has none. It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB, profileKey string) error {
	repo := repository.NewCacheRepo(db)
	existing, err := repo.Get(ctx, profileKey)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	doc, err := json.Marshal(slip.DefaultProfile())
	if err != nil {
		return err
	}
	return repo.Upsert(ctx, profileKey, string(doc))
}
