// Package service holds the synchronization engine: it owns the profile, the
// three slip collections and the session, writes every change to the local
// cache first and then propagates it to the remote store when an account is
// linked.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/jask/slipbook/internal/aggregate"
	"github.com/jask/slipbook/internal/cache"
	"github.com/jask/slipbook/internal/config"
	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/slip"
)

// Remote groups the gateway contracts the engine talks to.
type Remote struct {
	Accounts   remote.ProfileStore
	Incentives remote.SlipStore[slip.Incentive]
	Salaries   remote.SlipStore[slip.Salary]
	Profits    remote.SlipStore[slip.Profits]
}

// RemoteFromGateway exposes a gorm gateway as engine remote stores.
func RemoteFromGateway(g *remote.Gateway) *Remote {
	return &Remote{
		Accounts:   g.Accounts,
		Incentives: g.Incentives,
		Salaries:   g.Salaries,
		Profits:    g.Profits,
	}
}

// Engine is the only writer of the local cache.
type Engine struct {
	mu      sync.Mutex
	store   cache.Store
	remote  *Remote
	log     logrus.FieldLogger
	keys    KeyGenerator
	notify  Listener
	runs    ReconcileLog
	locks   *recordLocks
	syncing atomic.Int32

	profile    slip.Profile
	dirty      bool
	rev        uint64
	session    Session
	incentives *collection[slip.Incentive]
	salaries   *collection[slip.Salary]
	profits    *collection[slip.Profits]
	lastReport *ReconcileReport
}

// Option configures an Engine.
type Option func(*Engine)

// WithRemote enables linking. Without it the engine is local-only.
func WithRemote(r *Remote) Option {
	return func(e *Engine) { e.remote = r }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

func WithKeyGenerator(g KeyGenerator) Option {
	return func(e *Engine) { e.keys = g }
}

func WithListener(l Listener) Option {
	return func(e *Engine) { e.notify = l }
}

// WithReconcileLog records a report after every successful refresh.
func WithReconcileLog(r ReconcileLog) Option {
	return func(e *Engine) { e.runs = r }
}

// New returns an engine over store holding the default profile. Call Load or
// Restore to pick up cached state.
func New(store cache.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		log:     logrus.StandardLogger(),
		keys:    UUIDv7Generator{},
		locks:   newRecordLocks(),
		profile: slip.DefaultProfile(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("module", "service")
	var rem Remote
	if e.remote != nil {
		rem = *e.remote
	}
	e.incentives = &collection[slip.Incentive]{kind: slip.KindIncentive, remote: rem.Incentives}
	e.salaries = &collection[slip.Salary]{kind: slip.KindSalary, remote: rem.Salaries}
	e.profits = &collection[slip.Profits]{kind: slip.KindProfits, remote: rem.Profits}
	return e
}

// Load replaces in-memory state with the cached profile, collections and
// session. It never contacts the remote store.
func (e *Engine) Load(ctx context.Context) error {
	p, err := cache.LoadProfile(ctx, e.store)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	inc, err := cache.LoadEntries[slip.Incentive](ctx, e.store)
	if err != nil {
		return err
	}
	sal, err := cache.LoadEntries[slip.Salary](ctx, e.store)
	if err != nil {
		return err
	}
	prof, err := cache.LoadEntries[slip.Profits](ctx, e.store)
	if err != nil {
		return err
	}
	sess, err := cache.LoadSession(ctx, e.store)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.profile = p
	e.incentives.entries = inc
	e.salaries.entries = sal
	e.profits.entries = prof
	e.session = Session{State: StateUnlinked}
	e.dirty = false
	if sess.Linked {
		e.session = Session{State: StateLinked, AccountKey: sess.AccountKey}
		e.dirty = sess.ProfileDirty
	}
	return nil
}

// Syncing reports whether any operation is in flight.
func (e *Engine) Syncing() bool { return e.syncing.Load() > 0 }

func (e *Engine) begin() {
	e.syncing.Add(1)
	e.emit(EventSyncStarted)
}

func (e *Engine) finish() {
	e.syncing.Add(-1)
	e.emit(EventSyncFinished)
}

func (e *Engine) emit(ev Event) {
	if e.notify != nil {
		e.notify(ev)
	}
}

// linkedAccount returns the account to propagate to. Callers hold e.mu.
func (e *Engine) linkedAccount() (string, bool) {
	if e.remote == nil || e.session.State != StateLinked {
		return "", false
	}
	return e.session.AccountKey, true
}

// saveProfile writes the profile document. Callers hold e.mu.
func (e *Engine) saveProfile(ctx context.Context) error {
	if err := cache.SaveProfile(ctx, e.store, e.profile); err != nil {
		return fmt.Errorf("save profile locally: %w", err)
	}
	return nil
}

// touchProfile marks the profile as changed locally while linked. The mark
// is persisted and survives until a push of this or a later revision
// succeeds. Callers hold e.mu.
func (e *Engine) touchProfile(ctx context.Context) error {
	if _, linked := e.linkedAccount(); !linked {
		return nil
	}
	e.rev++
	if e.dirty {
		return nil
	}
	e.dirty = true
	return e.persistSession(ctx)
}

// pushProfile mirrors the profile to the linked account. Failures are logged
// only; the next successful push or refresh converges.
func (e *Engine) pushProfile(ctx context.Context) error {
	e.mu.Lock()
	account, ok := e.linkedAccount()
	p := copyProfile(e.profile)
	rev := e.rev
	e.mu.Unlock()
	if !ok {
		return nil
	}
	if _, err := e.remote.Accounts.Update(ctx, account, p); err != nil {
		config.LogError(e.log, "service", "pushProfile", "remote profile update", account, err)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dirty && e.rev == rev {
		e.dirty = false
		if err := e.persistSession(ctx); err != nil {
			e.log.WithError(err).Warn("profile pushed but dirty mark not cleared")
		}
	}
	return nil
}

// Profile returns a copy of the current profile.
func (e *Engine) Profile() slip.Profile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return copyProfile(e.profile)
}

func (e *Engine) Incentives() []slip.Entry[slip.Incentive] { return list(e, e.incentives) }
func (e *Engine) Salaries() []slip.Entry[slip.Salary]      { return list(e, e.salaries) }
func (e *Engine) Profits() []slip.Entry[slip.Profits]      { return list(e, e.profits) }

func (e *Engine) AddIncentive(ctx context.Context, s slip.Incentive) (slip.Entry[slip.Incentive], error) {
	return add(ctx, e, e.incentives, s)
}

func (e *Engine) UpdateIncentive(ctx context.Context, index int, s slip.Incentive) (slip.Entry[slip.Incentive], error) {
	return update(ctx, e, e.incentives, index, s)
}

func (e *Engine) DeleteIncentive(ctx context.Context, index int) error {
	return remove(ctx, e, e.incentives, index)
}

func (e *Engine) AddSalary(ctx context.Context, s slip.Salary) (slip.Entry[slip.Salary], error) {
	return add(ctx, e, e.salaries, s)
}

func (e *Engine) UpdateSalary(ctx context.Context, index int, s slip.Salary) (slip.Entry[slip.Salary], error) {
	return update(ctx, e, e.salaries, index, s)
}

func (e *Engine) DeleteSalary(ctx context.Context, index int) error {
	return remove(ctx, e, e.salaries, index)
}

func (e *Engine) AddProfits(ctx context.Context, s slip.Profits) (slip.Entry[slip.Profits], error) {
	return add(ctx, e, e.profits, s)
}

func (e *Engine) UpdateProfits(ctx context.Context, index int, s slip.Profits) (slip.Entry[slip.Profits], error) {
	return update(ctx, e, e.profits, index, s)
}

func (e *Engine) DeleteProfits(ctx context.Context, index int) error {
	return remove(ctx, e, e.profits, index)
}

// UpdateSettings replaces the user-editable profile fields. Derived fields
// are untouched.
func (e *Engine) UpdateSettings(ctx context.Context, s slip.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.CoursesNames == nil {
		s.CoursesNames = []string{}
	}
	if s.CoursesCompleted == nil {
		s.CoursesCompleted = []bool{}
	}
	return e.editProfile(ctx, "update settings", func(p *slip.Profile) {
		p.Settings = s
	})
}

// SetLeaveBalances seeds both leave balances. Negative values become zero.
func (e *Engine) SetLeaveBalances(ctx context.Context, regular, sick int) error {
	return e.editProfile(ctx, "set leave balances", func(p *slip.Profile) {
		p.Derived.RegularLeaveBalance = max(regular, 0)
		p.Derived.SickLeaveBalance = max(sick, 0)
	})
}

// Recalculate rebuilds the totals from the collections. It is the corrective
// path; ordinary mutations adjust totals incrementally.
func (e *Engine) Recalculate(ctx context.Context) (slip.Derived, error) {
	var d slip.Derived
	err := e.editProfile(ctx, "recalculate", func(p *slip.Profile) {
		p.Derived = aggregate.Recompute(e.slipsLocked(), *p)
		d = p.Derived
	})
	return d, err
}

// slipsLocked snapshots slip data. Callers hold e.mu.
func (e *Engine) slipsLocked() aggregate.Slips {
	return aggregate.Slips{
		Incentives: slip.Values(e.incentives.entries),
		Salaries:   slip.Values(e.salaries.entries),
		Profits:    slip.Values(e.profits.entries),
	}
}

func (e *Engine) editProfile(ctx context.Context, op string, fn func(*slip.Profile)) error {
	e.begin()
	defer e.finish()

	e.mu.Lock()
	fn(&e.profile)
	if err := errors.Join(e.saveProfile(ctx), e.touchProfile(ctx)); err != nil {
		e.mu.Unlock()
		return err
	}
	_, linked := e.linkedAccount()
	e.mu.Unlock()

	if !linked {
		return nil
	}
	if err := e.pushProfile(ctx); err != nil {
		return &SyncError{Op: op, Err: err}
	}
	e.emit(EventSaveCompleted)
	return nil
}

func copyProfile(p slip.Profile) slip.Profile {
	out := p
	out.Settings.CoursesNames = append([]string{}, p.Settings.CoursesNames...)
	out.Settings.CoursesCompleted = append([]bool{}, p.Settings.CoursesCompleted...)
	return out
}
