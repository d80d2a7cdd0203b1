package service

import (
	"context"
	"fmt"

	"github.com/jask/slipbook/internal/slip"
)

// resetLocal wipes the cache namespace and returns the engine to a fresh
// profile with empty collections. Callers hold e.mu.
func (e *Engine) resetLocal(ctx context.Context) error {
	if err := e.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear local cache: %w", err)
	}
	e.profile = slip.DefaultProfile()
	e.incentives.entries = nil
	e.salaries.entries = nil
	e.profits.entries = nil
	e.session = Session{State: StateUnlinked}
	e.dirty = false
	e.lastReport = nil
	if err := e.saveProfile(ctx); err != nil {
		return err
	}
	return e.persistSession(ctx)
}
