package usage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeduStorm/NovaCore/nova/check"
	"github.com/VeduStorm/NovaCore/nova/common"
)

type call struct {
	method string
	path   string
}

type fakeCollaborator struct {
	err   map[string]error
	calls []call
}

func (f *fakeCollaborator) do(method, path string) error {
	f.calls = append(f.calls, call{method, path})
	return f.err[method]
}

func (f *fakeCollaborator) Login(_ context.Context, path string) error {
	return f.do("login", path)
}
func (f *fakeCollaborator) LoginSilent(_ context.Context, path string) error {
	return f.do("login_silent", path)
}
func (f *fakeCollaborator) LoginNoExit(_ context.Context, path string) error {
	return f.do("login_noexit", path)
}

type exitRecorder struct{ codes []int }

func (e *exitRecorder) exit(code int) { e.codes = append(e.codes, code) }

func newRunner(c Collaborator) (*Runner, *bytes.Buffer, *exitRecorder) {
	out := &bytes.Buffer{}
	ex := &exitRecorder{}
	return New(c, WithOutput(out), WithExit(ex.exit)), out, ex
}

var entryPoints = []struct {
	method string
	run    func(r *Runner, ctx context.Context, path string)
}{
	{"login", (*Runner).RunDefaultCheck},
	{"login_silent", (*Runner).RunSilentCheck},
	{"login_noexit", (*Runner).RunNoExitCheck},
}

func TestRunner(t *testing.T) {
	ctx := context.Background()

	for _, ep := range entryPoints {
		t.Run("Should stay silent and not exit when "+ep.method+" succeeds", func(t *testing.T) {
			fc := &fakeCollaborator{}
			r, out, ex := newRunner(fc)

			ep.run(r, ctx, "")

			assert.Empty(t, out.String())
			assert.Empty(t, ex.codes)
			require.Len(t, fc.calls, 1)
			assert.Equal(t, call{ep.method, common.DefaultConfigPath}, fc.calls[0])
		})

		t.Run("Should print the preview and exit 1 when "+ep.method+" fails", func(t *testing.T) {
			fc := &fakeCollaborator{err: map[string]error{ep.method: errors.New("ConfigNotFound: config/config.json")}}
			r, out, ex := newRunner(fc)

			ep.run(r, ctx, "")

			assert.Equal(t, PreviewPrefix+"\nConfigNotFound: config/config.json\n", out.String())
			assert.Equal(t, []int{1}, ex.codes)
		})

		t.Run("Should forward an explicit path to "+ep.method, func(t *testing.T) {
			fc := &fakeCollaborator{}
			r, _, _ := newRunner(fc)

			ep.run(r, ctx, "/etc/app/license.json")

			require.Len(t, fc.calls, 1)
			assert.Equal(t, "/etc/app/license.json", fc.calls[0].path)
		})
	}
}

func TestRunAll(t *testing.T) {
	t.Run("Should call the three conventions in order", func(t *testing.T) {
		fc := &fakeCollaborator{}
		r, out, ex := newRunner(fc)

		r.RunAll(context.Background(), "custom.json")

		assert.Equal(t, []call{
			{"login", "custom.json"},
			{"login_silent", "custom.json"},
			{"login_noexit", "custom.json"},
		}, fc.calls)
		assert.Empty(t, out.String())
		assert.Empty(t, ex.codes)
	})

	t.Run("Should exit with 1 for the silent check failure", func(t *testing.T) {
		fc := &fakeCollaborator{err: map[string]error{"login_silent": errors.New("boom")}}
		r, out, ex := newRunner(fc)

		r.RunAll(context.Background(), "")

		assert.Contains(t, out.String(), "Something went wrong")
		assert.Contains(t, out.String(), "boom")
		assert.Equal(t, []int{1}, ex.codes)
	})
}

func TestRunnerWithChecker(t *testing.T) {
	ctx := context.Background()

	for _, ep := range entryPoints {
		t.Run("Should preview a missing config and exit 1 for "+ep.method, func(t *testing.T) {
			missing := filepath.Join(t.TempDir(), "config", "config.json")
			checker := check.New()
			r, out, ex := newRunner(checker)

			ep.run(r, ctx, missing)

			assert.Equal(t, PreviewPrefix+"\nconfig not found: "+missing+"\n", out.String())
			assert.Equal(t, []int{1}, ex.codes)
		})
	}
}
