package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/slip"
)

var now = func() time.Time { return time.Now().UTC() }

// DedupeResult counts the cleanup of one collection.
type DedupeResult struct {
	Kind    slip.Kind `json:"kind" yaml:"kind"`
	Groups  int       `json:"groups" yaml:"groups"`
	Removed int       `json:"removed" yaml:"removed"`
	Failed  int       `json:"failed" yaml:"failed"`
}

// ReconcileReport is the outcome of duplicate cleanup during one refresh.
type ReconcileReport struct {
	AccountKey string         `json:"account_key" yaml:"account_key"`
	At         time.Time      `json:"at" yaml:"at"`
	Results    []DedupeResult `json:"results" yaml:"results"`
}

func (r ReconcileReport) Groups() int {
	n := 0
	for _, res := range r.Results {
		n += res.Groups
	}
	return n
}

func (r ReconcileReport) Removed() int {
	n := 0
	for _, res := range r.Results {
		n += res.Removed
	}
	return n
}

func (r ReconcileReport) Failed() int {
	n := 0
	for _, res := range r.Results {
		n += res.Failed
	}
	return n
}

// ReconcileLog persists reconcile reports.
type ReconcileLog interface {
	Record(ctx context.Context, r ReconcileReport) error
}

func (e *Engine) record(ctx context.Context, r ReconcileReport) {
	if e.runs == nil {
		return
	}
	if err := e.runs.Record(ctx, r); err != nil {
		e.log.WithError(err).Warn("reconcile report not recorded")
	}
}

// dedupe keeps one record per natural key and deletes the others remotely.
// Losers are dropped from the result even when their delete fails; the next
// refresh retries them.
func dedupe[T slip.Data](ctx context.Context, log logrus.FieldLogger, kind slip.Kind, store remote.SlipStore[T], recs []remote.Record[T]) ([]remote.Record[T], DedupeResult) {
	res := DedupeResult{Kind: kind}
	groups := map[string][]remote.Record[T]{}
	var order []string
	for _, r := range recs {
		k := r.Data.NaturalKey()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	kept := make([]remote.Record[T], 0, len(order))
	for _, k := range order {
		group := groups[k]
		keep := group[0]
		for _, r := range group[1:] {
			keep, _ = chooseKeep(keep, r)
		}
		kept = append(kept, keep)
		if len(group) == 1 {
			continue
		}
		res.Groups++
		for _, r := range group {
			if r.ID == keep.ID {
				continue
			}
			err := store.Delete(ctx, r.Account, r.ID)
			if err != nil && !remote.IsNotFound(err) {
				res.Failed++
				log.WithFields(logrus.Fields{
					"collection":  kind,
					"natural_key": k,
					"remote_id":   r.ID,
				}).WithError(err).Warn("duplicate not deleted")
				continue
			}
			res.Removed++
		}
	}
	return kept, res
}

// chooseKeep prefers the later creation time, then the higher identifier.
func chooseKeep[T slip.Data](a, b remote.Record[T]) (keep, drop remote.Record[T]) {
	if b.CreatedAt.After(a.CreatedAt) {
		return b, a
	}
	if a.CreatedAt.After(b.CreatedAt) {
		return a, b
	}
	if b.ID > a.ID {
		return b, a
	}
	return a, b
}
