package app

import (
	"context"

	"github.com/VeduStorm/NovaCore/nova/check"
	"github.com/VeduStorm/NovaCore/nova/common/config"
)

// CheckRunner backs the one-shot login commands. Each call builds a checker wired to the
// sinks its config enables and closes them before returning or terminating.
type CheckRunner struct {
	exit      check.Handler
	checkOpts []check.Option
}

type CheckRunnerOption func(*CheckRunner)

// WithExitHandler replaces the handler run after the sinks are closed on a mismatch.
func WithExitHandler(h check.Handler) CheckRunnerOption {
	return func(r *CheckRunner) {
		if h != nil {
			r.exit = h
		}
	}
}

// WithRunnerCheckOptions passes extra options to every checker the runner builds.
func WithRunnerCheckOptions(opts ...check.Option) CheckRunnerOption {
	return func(r *CheckRunner) { r.checkOpts = append(r.checkOpts, opts...) }
}

func NewCheckRunner(opts ...CheckRunnerOption) *CheckRunner {
	r := &CheckRunner{exit: check.ExitHandler}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *CheckRunner) Login(ctx context.Context, path string) error {
	return r.run(ctx, path, check.ModeDefault)
}

func (r *CheckRunner) LoginSilent(ctx context.Context, path string) error {
	return r.run(ctx, path, check.ModeSilent)
}

func (r *CheckRunner) LoginNoExit(ctx context.Context, path string) error {
	return r.run(ctx, path, check.ModeNoExit)
}

func (r *CheckRunner) run(ctx context.Context, path string, mode check.Mode) error {
	// an unreadable config is reported by Check itself; it just has no sinks to record into
	var sinks *Sinks
	if cfg, _, err := config.Load(path); err == nil {
		if sinks, err = OpenSinks(cfg); err != nil {
			log.Warnf("outcome sinks unavailable, checking without them: %v", err)
		}
	}
	defer sinks.Close()

	term := check.NewTerminator()
	term.SetHandler(func(reason string) {
		sinks.Close()
		r.exit(reason)
	})
	opts := append([]check.Option{
		check.WithTerminator(term),
		check.WithRecorders(sinks.Recorders()...),
	}, r.checkOpts...)

	_, err := check.New(opts...).Check(ctx, path, mode)
	return err
}
