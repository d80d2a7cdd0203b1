package cli

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jask/slipbook/internal/cache"
	"github.com/jask/slipbook/internal/config"
	"github.com/jask/slipbook/internal/database/repository"
	"github.com/jask/slipbook/internal/remote"
	"github.com/jask/slipbook/internal/service"
)

// keepRuns is how many reconcile runs the local history retains.
const keepRuns = 20

// app is one command invocation's open resources.
type app struct {
	cfg   config.Config
	log   *logrus.Logger
	cache cache.Backend
	gw    *remote.Gateway
	runs  *repository.ReconciliationRepo
	eng   *service.Engine
}

func openApp(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "config", err)
	}
	log := config.NewLogger(cfg.Log)
	log.SetOutput(cmd.ErrOrStderr())
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	backend, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open cache", err)
	}
	a := &app{cfg: cfg, log: log, cache: backend}

	engOpts := []service.Option{service.WithLogger(log)}
	if sq, ok := backend.(*cache.SQLite); ok {
		a.runs = repository.NewReconciliationRepo(sq.DB())
		engOpts = append(engOpts, service.WithReconcileLog(&runLog{repo: a.runs, keep: keepRuns}))
	}
	if cfg.Remote.Enabled() {
		gw, err := remote.Open(cfg.Remote.Driver, cfg.Remote.DSN,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithLogger(log),
		)
		if err != nil {
			_ = backend.Close()
			return nil, WrapExitError(ExitCommandError, "open remote", err)
		}
		a.gw = gw
		engOpts = append(engOpts, service.WithRemote(service.RemoteFromGateway(gw)))
	}
	a.eng = service.New(backend, engOpts...)
	return a, nil
}

// restore loads cached state and refreshes a linked session. A refresh that
// cannot reach the remote store falls back to the cached state.
func (a *app) restore(ctx context.Context, out *OutputFormatter, refresh bool) error {
	if !refresh {
		return a.eng.Load(ctx)
	}
	err := a.eng.Restore(ctx)
	if service.IsSyncError(err) {
		out.Warn("showing cached data: %v", err)
		return nil
	}
	return err
}

func (a *app) Close() error {
	var err error
	if a.gw != nil {
		err = a.gw.Close()
	}
	return errors.Join(err, a.cache.Close())
}

// runFunc is the body of a command once the engine is ready.
type runFunc func(ctx context.Context, a *app, out *OutputFormatter) error

// run opens the app, restores the session and hands over to fn. With
// refresh, a linked session is refreshed first unless --offline was given.
func run(cmd *cobra.Command, opts *RootOptions, refresh bool, fn runFunc) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	a, err := openApp(ctx, cmd, opts)
	if err != nil {
		return out.Fail(err)
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			out.VerboseLog("close: %v", cerr)
		}
	}()
	if err := a.restore(ctx, out, refresh && !opts.Offline); err != nil {
		return out.Fail(err)
	}
	return fn(ctx, a, out)
}

// runLog records reconcile reports in the local sqlite history.
type runLog struct {
	repo *repository.ReconciliationRepo
	keep int
}

func (r *runLog) Record(ctx context.Context, rep service.ReconcileReport) error {
	err := r.repo.Add(ctx, repository.ReconcileRun{
		ID:          uuid.NewString(),
		AccountKey:  rep.AccountKey,
		GroupsFound: rep.Groups(),
		Removed:     rep.Removed(),
		Failed:      rep.Failed(),
		CreatedAt:   rep.At,
	})
	if err != nil {
		return err
	}
	return r.repo.Prune(ctx, r.keep)
}
