package repository

import (
	"context"
	"database/sql"
)

// ReconciliationRepo keeps a local history of duplicate-cleanup passes.
type ReconciliationRepo struct{ db *sql.DB }

func NewReconciliationRepo(db *sql.DB) *ReconciliationRepo { return &ReconciliationRepo{db: db} }

func (r *ReconciliationRepo) Add(ctx context.Context, run ReconcileRun) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO reconcile_runs(id, account_key, groups_found, removed, failed, created_at)
	VALUES(?, ?, ?, ?, ?, ?)
	`, run.ID, run.AccountKey, run.GroupsFound, run.Removed, run.Failed, run.CreatedAt)
	return err
}

// Latest returns the most recent run, or nil, nil when none was recorded.
func (r *ReconciliationRepo) Latest(ctx context.Context) (*ReconcileRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, account_key, groups_found, removed, failed, created_at FROM reconcile_runs ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	var run ReconcileRun
	if err := row.Scan(&run.ID, &run.AccountKey, &run.GroupsFound, &run.Removed, &run.Failed, &run.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// Prune drops all but the newest keep runs.
func (r *ReconciliationRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.ExecContext(ctx, `
	DELETE FROM reconcile_runs WHERE id NOT IN (
	 SELECT id FROM reconcile_runs ORDER BY created_at DESC, rowid DESC LIMIT ?
	)`, keep)
	return err
}
