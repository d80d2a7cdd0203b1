package service

import (
	"github.com/jask/slipbook/internal/slip"
)

// Item is one collection entry in reader-facing form.
type Item[T slip.Data] struct {
	Index   int    `json:"index" yaml:"index"`
	Key     string `json:"key" yaml:"key"`
	ID      int64  `json:"id,omitempty" yaml:"id,omitempty"`
	Pending bool   `json:"pending" yaml:"pending"`
	Slip    T      `json:"slip" yaml:"slip"`
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	Session    Session                `json:"session" yaml:"session"`
	Profile    slip.Profile           `json:"profile" yaml:"profile"`
	Incentives []Item[slip.Incentive] `json:"incentives" yaml:"incentives"`
	Salaries   []Item[slip.Salary]    `json:"salaries" yaml:"salaries"`
	Profits    []Item[slip.Profits]   `json:"profits" yaml:"profits"`
}

// Pending counts entries not yet acknowledged remotely.
func (s Snapshot) Pending() int {
	n := 0
	for _, it := range s.Incentives {
		if it.Pending {
			n++
		}
	}
	for _, it := range s.Salaries {
		if it.Pending {
			n++
		}
	}
	for _, it := range s.Profits {
		if it.Pending {
			n++
		}
	}
	return n
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Session:    e.session,
		Profile:    copyProfile(e.profile),
		Incentives: items(e.incentives.entries),
		Salaries:   items(e.salaries.entries),
		Profits:    items(e.profits.entries),
	}
}

func items[T slip.Data](entries []slip.Entry[T]) []Item[T] {
	out := make([]Item[T], 0, len(entries))
	for i, e := range entries {
		id, synced := slip.RemoteID(e)
		out = append(out, Item[T]{Index: i, Key: e.LocalKey(), ID: id, Pending: !synced, Slip: e.Slip()})
	}
	return out
}
