package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jask/slipbook/internal/aggregate"
	"github.com/jask/slipbook/internal/cache"
	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/secrets"
	"github.com/jask/slipbook/internal/slip"
)

// State is the link state between this device and a remote account.
type State int

const (
	StateUnlinked State = iota
	StateLinking
	StateLinked
)

func (s State) String() string {
	switch s {
	case StateLinking:
		return "linking"
	case StateLinked:
		return "linked"
	}
	return "unlinked"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "unlinked", "":
		*s = StateUnlinked
	case "linking":
		*s = StateLinking
	case "linked":
		*s = StateLinked
	default:
		return fmt.Errorf("unknown session state %q", b)
	}
	return nil
}

// Session is the current link state.
type Session struct {
	State      State  `json:"state" yaml:"state"`
	AccountKey string `json:"account_key,omitempty" yaml:"account_key,omitempty"`
}

func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// persistSession writes the session keys. Callers hold e.mu.
func (e *Engine) persistSession(ctx context.Context) error {
	err := cache.SaveSession(ctx, e.store, cache.Session{
		AccountKey:   e.session.AccountKey,
		Linked:       e.session.State == StateLinked,
		ProfileDirty: e.dirty,
	})
	if err != nil {
		return fmt.Errorf("save session locally: %w", err)
	}
	return nil
}

// Restore loads cached state and, when a session exists, refreshes from the
// remote store. A failed refresh leaves the cached state in place.
func (e *Engine) Restore(ctx context.Context) error {
	if err := e.Load(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	_, linked := e.linkedAccount()
	e.mu.Unlock()
	if !linked {
		return nil
	}
	return e.Refresh(ctx)
}

// AttemptLink binds this device to accountKey. An existing account must
// accept pin and then overwrites local state; otherwise a new account is
// created from the local profile and pending slips are pushed to it.
func (e *Engine) AttemptLink(ctx context.Context, accountKey, pin string) error {
	if e.remote == nil {
		return ErrRemoteDisabled
	}
	accountKey = strings.TrimSpace(accountKey)
	if accountKey == "" {
		return &slip.ValidationError{Fields: map[string]string{"AccountKey": "required"}}
	}
	if err := secrets.ValidatePIN(pin); err != nil {
		return &slip.ValidationError{Fields: map[string]string{"PIN": "len=4,numeric"}}
	}

	release, err := e.locks.acquire(sessionToken)
	if err != nil {
		return err
	}
	defer release()
	e.begin()
	defer e.finish()

	e.mu.Lock()
	if e.session.State == StateLinked {
		e.mu.Unlock()
		return ErrAlreadyLinked
	}
	e.session = Session{State: StateLinking, AccountKey: accountKey}
	e.mu.Unlock()

	log := e.log.WithField("account", accountKey)
	acct, err := e.remote.Accounts.Find(ctx, accountKey)
	if err != nil {
		e.unlinkState()
		return &SyncError{Op: "link", Err: err}
	}

	if acct != nil {
		if err := secrets.VerifyPIN(acct.PINHash, pin); err != nil {
			e.unlinkState()
			if errors.Is(err, secrets.ErrMismatch) {
				log.Warn("link rejected")
				return ErrAuthentication
			}
			return err
		}
		pulled, err := e.pull(ctx, acct)
		if err != nil {
			e.unlinkState()
			return err
		}
		if err := e.install(ctx, accountKey, pulled, false); err != nil {
			return err
		}
		log.Info("linked to existing account")
		e.emit(EventSaveCompleted)
		return nil
	}

	hash, err := secrets.HashPIN(pin)
	if err != nil {
		e.unlinkState()
		return err
	}
	e.mu.Lock()
	p := copyProfile(e.profile)
	e.mu.Unlock()
	p.AccountKey = accountKey
	if _, err := e.remote.Accounts.Create(ctx, accountKey, hash, p); err != nil {
		e.unlinkState()
		return &SyncError{Op: "link", Err: err}
	}

	e.mu.Lock()
	e.profile.AccountKey = accountKey
	e.session = Session{State: StateLinked, AccountKey: accountKey}
	err = errors.Join(e.persistSession(ctx), e.saveProfile(ctx))
	e.mu.Unlock()
	if err != nil {
		return err
	}
	log.Info("created account")

	_, pendingErr := e.syncPending(ctx, accountKey)
	if err := e.pushProfile(ctx); err != nil {
		return errors.Join(pendingErr, &SyncError{Op: "link", Err: err})
	}
	if pendingErr != nil {
		return pendingErr
	}
	e.emit(EventSaveCompleted)
	return nil
}

func (e *Engine) unlinkState() {
	e.mu.Lock()
	e.session = Session{State: StateUnlinked}
	e.mu.Unlock()
}

// Unlink forgets the account and resets the device to a fresh profile with
// empty collections.
func (e *Engine) Unlink(ctx context.Context) error {
	release, err := e.locks.acquire(sessionToken)
	if err != nil {
		return err
	}
	defer release()
	e.begin()
	defer e.finish()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.State != StateLinked {
		return ErrNotLinked
	}
	if err := e.resetLocal(ctx); err != nil {
		return err
	}
	e.log.Info("unlinked")
	return nil
}

// SyncPending pushes every pending entry to the linked account, then the
// profile when it changed, and returns how many entries were acknowledged.
func (e *Engine) SyncPending(ctx context.Context) (int, error) {
	release, err := e.locks.acquire(sessionToken)
	if err != nil {
		return 0, err
	}
	defer release()
	e.begin()
	defer e.finish()

	e.mu.Lock()
	account, linked := e.linkedAccount()
	e.mu.Unlock()
	if !linked {
		return 0, ErrNotLinked
	}
	n, err := e.syncPending(ctx, account)
	e.mu.Lock()
	dirty := e.dirty
	e.mu.Unlock()
	if n > 0 || dirty {
		_ = e.pushProfile(ctx)
		e.emit(EventSaveCompleted)
	}
	return n, err
}

func (e *Engine) syncPending(ctx context.Context, account string) (int, error) {
	a, errA := pushPending(ctx, e, e.incentives, account)
	b, errB := pushPending(ctx, e, e.salaries, account)
	c, errC := pushPending(ctx, e, e.profits, account)
	return a + b + c, errors.Join(errA, errB, errC)
}

// Refresh replays pending entries and then replaces local state with the
// remote account's, keeping entries that are still pending.
func (e *Engine) Refresh(ctx context.Context) error {
	_, err := e.Dedupe(ctx)
	return err
}

// Dedupe runs a refresh and returns its duplicate cleanup report.
func (e *Engine) Dedupe(ctx context.Context) (ReconcileReport, error) {
	release, err := e.locks.acquire(sessionToken)
	if err != nil {
		return ReconcileReport{}, err
	}
	defer release()
	e.begin()
	defer e.finish()

	e.mu.Lock()
	account, linked := e.linkedAccount()
	e.mu.Unlock()
	if !linked {
		return ReconcileReport{}, ErrNotLinked
	}

	log := e.log.WithField("account", account)
	if _, err := e.syncPending(ctx, account); err != nil {
		log.WithError(err).Warn("some pending entries were not pushed")
	}
	e.mu.Lock()
	dirty := e.dirty
	e.mu.Unlock()
	if dirty {
		if err := e.pushProfile(ctx); err != nil {
			log.WithError(err).Warn("local profile changes not pushed, keeping them")
		}
	}

	acct, err := e.remote.Accounts.Find(ctx, account)
	if err != nil {
		return ReconcileReport{}, &SyncError{Op: "refresh", Err: err}
	}
	if acct == nil {
		return ReconcileReport{}, &SyncError{Op: "refresh", Err: &remote.Error{Code: remote.CodeNotFound, Op: "accounts.find"}}
	}
	pulled, err := e.pull(ctx, acct)
	if err != nil {
		return ReconcileReport{}, err
	}
	if err := e.install(ctx, account, pulled, true); err != nil {
		return pulled.report, err
	}
	e.record(ctx, pulled.report)
	log.WithField("removed", pulled.report.Removed()).Info("refreshed")
	return pulled.report, nil
}

// LastReport returns the report of the most recent refresh, if any.
func (e *Engine) LastReport() *ReconcileReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastReport == nil {
		return nil
	}
	r := *e.lastReport
	return &r
}

type pulledState struct {
	profile    slip.Profile
	incentives []remote.Record[slip.Incentive]
	salaries   []remote.Record[slip.Salary]
	profits    []remote.Record[slip.Profits]
	report     ReconcileReport
}

// pull lists every collection of acct and removes remote duplicates.
func (e *Engine) pull(ctx context.Context, acct *remote.Account) (pulledState, error) {
	st := pulledState{
		profile: acct.Profile,
		report:  ReconcileReport{AccountKey: acct.AccountKey, At: now()},
	}
	var (
		res DedupeResult
		err error
	)
	if st.incentives, res, err = pullCollection(ctx, e, e.incentives, acct.AccountKey); err != nil {
		return st, err
	}
	st.report.Results = append(st.report.Results, res)
	if st.salaries, res, err = pullCollection(ctx, e, e.salaries, acct.AccountKey); err != nil {
		return st, err
	}
	st.report.Results = append(st.report.Results, res)
	if st.profits, res, err = pullCollection(ctx, e, e.profits, acct.AccountKey); err != nil {
		return st, err
	}
	st.report.Results = append(st.report.Results, res)
	return st, nil
}

func pullCollection[T slip.Data](ctx context.Context, e *Engine, c *collection[T], account string) ([]remote.Record[T], DedupeResult, error) {
	recs, err := c.remote.List(ctx, account)
	if err != nil {
		return nil, DedupeResult{Kind: c.kind}, &SyncError{Op: "refresh", Kind: c.kind, Err: err}
	}
	kept, res := dedupe(ctx, e.log, c.kind, c.remote, recs)
	return kept, res, nil
}

// install overwrites local state with pulled. With keepPending, entries
// that never reached the remote store survive, and so does a local profile
// still marked dirty. Totals are rebuilt from the resulting collections;
// settings and leave balances come from the remote profile unless the local
// one is kept. The rebuilt profile is pushed back when it differs from the
// remote copy.
func (e *Engine) install(ctx context.Context, account string, pulled pulledState, keepPending bool) error {
	e.mu.Lock()
	e.incentives.entries = merge(e, e.incentives, pulled.incentives, keepPending)
	e.salaries.entries = merge(e, e.salaries, pulled.salaries, keepPending)
	e.profits.entries = merge(e, e.profits, pulled.profits, keepPending)

	keepLocal := keepPending && e.dirty
	base := pulled.profile
	if keepLocal {
		base = e.profile
	} else {
		e.dirty = false
	}
	p := copyProfile(base)
	p.AccountKey = account
	p.Derived = aggregate.Recompute(e.slipsLocked(), p)
	drift := keepLocal || !p.Derived.Equal(pulled.profile.Derived)
	e.profile = p
	e.session = Session{State: StateLinked, AccountKey: account}
	report := pulled.report
	e.lastReport = &report

	err := errors.Join(
		e.incentives.save(ctx, e.store),
		e.salaries.save(ctx, e.store),
		e.profits.save(ctx, e.store),
		e.saveProfile(ctx),
		e.persistSession(ctx),
	)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	if drift {
		e.log.WithField("account", account).Info("remote profile out of date, pushing local copy")
		_ = e.pushProfile(ctx)
	}
	return nil
}

// merge builds entries from records, reusing the local key of an entry with
// the same remote identifier.
func merge[T slip.Data](e *Engine, c *collection[T], recs []remote.Record[T], keepPending bool) []slip.Entry[T] {
	keys := make(map[int64]string, len(c.entries))
	var pending []slip.Entry[T]
	for _, entry := range c.entries {
		if id, ok := slip.RemoteID(entry); ok {
			keys[id] = entry.LocalKey()
		} else if keepPending {
			pending = append(pending, entry)
		}
	}
	out := make([]slip.Entry[T], 0, len(recs)+len(pending))
	for _, r := range recs {
		key, ok := keys[r.ID]
		if !ok {
			key = e.keys.Generate()
		}
		out = append(out, slip.Synced[T]{Key: key, ID: r.ID, CreatedAt: r.CreatedAt, Data: r.Data})
	}
	return append(out, pending...)
}
