package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/jask/slipbook/internal/cache"
	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/slip"
)

var errOffline = &remote.Error{Code: remote.CodeUnavailable, Op: "test", Err: errors.New("connection reset by peer")}

// flaky wraps a slip table and fails selected calls on demand.
type flaky[T slip.Data] struct {
	remote.SlipStore[T]

	mu        sync.Mutex
	createErr error
	updateErr error
	deleteErr error
	creates   int
}

func (f *flaky[T]) failCreate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *flaky[T]) failUpdate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

func (f *flaky[T]) failDelete(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}

func (f *flaky[T]) Create(ctx context.Context, account string, data T) (remote.Record[T], error) {
	f.mu.Lock()
	err := f.createErr
	f.creates++
	f.mu.Unlock()
	if err != nil {
		return remote.Record[T]{}, err
	}
	return f.SlipStore.Create(ctx, account, data)
}

func (f *flaky[T]) Update(ctx context.Context, account string, id int64, data T) (remote.Record[T], error) {
	f.mu.Lock()
	err := f.updateErr
	f.mu.Unlock()
	if err != nil {
		return remote.Record[T]{}, err
	}
	return f.SlipStore.Update(ctx, account, id, data)
}

func (f *flaky[T]) Delete(ctx context.Context, account string, id int64) error {
	f.mu.Lock()
	err := f.deleteErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.SlipStore.Delete(ctx, account, id)
}

// flakyAccounts fails profile updates on demand.
type flakyAccounts struct {
	remote.ProfileStore

	mu        sync.Mutex
	updateErr error
}

func (f *flakyAccounts) failUpdate(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

func (f *flakyAccounts) Update(ctx context.Context, accountKey string, p slip.Profile) (remote.Account, error) {
	f.mu.Lock()
	err := f.updateErr
	f.mu.Unlock()
	if err != nil {
		return remote.Account{}, err
	}
	return f.ProfileStore.Update(ctx, accountKey, p)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) take() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.events
	l.events = nil
	return out
}

type memoryRuns struct {
	mu      sync.Mutex
	reports []ReconcileReport
}

func (m *memoryRuns) Record(_ context.Context, r ReconcileReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

type harness struct {
	eng        *Engine
	store      *cache.Memory
	gw         *remote.Gateway
	rem        *Remote
	accounts   *flakyAccounts
	incentives *flaky[slip.Incentive]
	salaries   *flaky[slip.Salary]
	profits    *flaky[slip.Profits]
	events     *eventLog
	runs       *memoryRuns
	logs       *logtest.Hook
}

func openRemote(t *testing.T) *remote.Gateway {
	t.Helper()
	quiet, _ := logtest.NewNullLogger()
	gw, err := remote.Open("sqlite", filepath.Join(t.TempDir(), "remote.db"), remote.WithLogger(quiet))
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

// newHarness builds an unlinked engine over a memory cache and a sqlite
// remote. Pass gw to share a remote between devices.
func newHarness(t *testing.T, gw *remote.Gateway) *harness {
	t.Helper()
	if gw == nil {
		gw = openRemote(t)
	}
	return newHarnessWithStore(t, gw, cache.NewMemory())
}

func newHarnessWithStore(t *testing.T, gw *remote.Gateway, store *cache.Memory) *harness {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	h := &harness{
		store:      store,
		gw:         gw,
		accounts:   &flakyAccounts{ProfileStore: gw.Accounts},
		incentives: &flaky[slip.Incentive]{SlipStore: gw.Incentives},
		salaries:   &flaky[slip.Salary]{SlipStore: gw.Salaries},
		profits:    &flaky[slip.Profits]{SlipStore: gw.Profits},
		events:     &eventLog{},
		runs:       &memoryRuns{},
		logs:       hook,
	}
	h.rem = &Remote{Accounts: h.accounts, Incentives: h.incentives, Salaries: h.salaries, Profits: h.profits}
	h.eng = New(store,
		WithRemote(h.rem),
		WithLogger(logger),
		WithKeyGenerator(NewSequenceGenerator("k")),
		WithListener(h.events.listen),
		WithReconcileLog(h.runs),
	)
	require.NoError(t, h.eng.Load(context.Background()))
	return h
}

func (h *harness) link(t *testing.T, account string) {
	t.Helper()
	require.NoError(t, h.eng.AttemptLink(context.Background(), account, "1234"))
	require.Equal(t, StateLinked, h.eng.Session().State)
	h.events.take()
}
