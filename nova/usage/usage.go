// Package usage runs the three license check conventions the way an embedding
// application would: each call sits behind its own error boundary that prints a
// developer preview of the error and exits with status 1.
package usage

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/VeduStorm/NovaCore/nova/common"
)

// PreviewPrefix opens every diagnostic printed by the error boundary.
const PreviewPrefix = "Something went wrong, Here's a preview for developers:"

// Collaborator is the license check surface the runner drives.
type Collaborator interface {
	Login(ctx context.Context, path string) error
	LoginSilent(ctx context.Context, path string) error
	LoginNoExit(ctx context.Context, path string) error
}

type Runner struct {
	collab Collaborator
	out    io.Writer
	exit   func(code int)
}

type Option func(*Runner)

func WithOutput(w io.Writer) Option       { return func(r *Runner) { r.out = w } }
func WithExit(exit func(code int)) Option { return func(r *Runner) { r.exit = exit } }

func New(c Collaborator, opts ...Option) *Runner {
	r := &Runner{collab: c, out: os.Stdout, exit: os.Exit}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Preview renders err the way the error boundary prints it.
func Preview(err error) string {
	return PreviewPrefix + "\n" + err.Error()
}

func (r *Runner) RunDefaultCheck(ctx context.Context, path string) {
	r.guard(r.collab.Login(ctx, common.ResolveConfigPath(path)))
}

func (r *Runner) RunSilentCheck(ctx context.Context, path string) {
	r.guard(r.collab.LoginSilent(ctx, common.ResolveConfigPath(path)))
}

// RunNoExitCheck only exits on a returned error; a mismatch in no-exit mode is not one.
func (r *Runner) RunNoExitCheck(ctx context.Context, path string) {
	r.guard(r.collab.LoginNoExit(ctx, common.ResolveConfigPath(path)))
}

// RunAll runs the default, silent and no-exit checks in that order.
func (r *Runner) RunAll(ctx context.Context, path string) {
	r.RunDefaultCheck(ctx, path)
	r.RunSilentCheck(ctx, path)
	r.RunNoExitCheck(ctx, path)
}

func (r *Runner) guard(err error) {
	if err == nil {
		return
	}
	_, _ = fmt.Fprintln(r.out, Preview(err))
	r.exit(common.ExitFailure)
}
