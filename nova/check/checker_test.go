package check

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeduStorm/NovaCore/nova/common/config"
	"github.com/VeduStorm/NovaCore/nova/common/license"
	"github.com/VeduStorm/NovaCore/nova/common/logx"
)

var fixedNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

type fixture struct {
	cfg    config.Config
	sk     []byte
	secret []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pk, sk, err := license.GenerateEd25519Key()
	require.NoError(t, err)
	secret, err := license.GenerateAES256Key()
	require.NoError(t, err)
	return &fixture{
		cfg: config.Config{
			Product:  "novacore-demo",
			Owner:    "ops@example.com",
			Features: []string{"core"},
			Keys: config.KeysCfg{
				PublicKey: license.EncodeKey(pk),
				AESKey:    license.EncodeKey(secret),
				AAD:       "test|aad",
			},
		},
		sk:     sk,
		secret: secret,
	}
}

func (f *fixture) issue(t *testing.T, mutate func(*license.License)) string {
	t.Helper()
	lic := license.License{
		Serial:    "NC-42",
		Product:   "novacore-demo",
		Owner:     "ops@example.com",
		Features:  []string{"core", "export"},
		IssuedAt:  fixedNow.Add(-24 * time.Hour),
		ExpiresAt: fixedNow.Add(30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(&lic)
	}
	token, err := license.Issue(lic, license.IssueOptions{
		SigningKey: f.sk,
		SecretKey:  f.secret,
		AAD:        license.ParseAAD(f.cfg.Keys.AAD),
	})
	require.NoError(t, err)
	return token
}

func (f *fixture) write(t *testing.T, token string) string {
	t.Helper()
	c := f.cfg
	c.License = token
	b, err := json.Marshal(c)
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, b, 0o600))
	return p
}

type harness struct {
	checker *Checker
	out     *bytes.Buffer
	reasons []string
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}}
	restore := logx.SetOutput(h.out, h.out)
	t.Cleanup(restore)

	term := NewTerminator()
	term.SetHandler(func(reason string) { h.reasons = append(h.reasons, reason) })
	base := []Option{
		WithTerminator(term),
		WithClock(func() time.Time { return fixedNow }),
		WithMachineCode(func() (string, error) { return "MACHINE-A", nil }),
	}
	h.checker = New(append(base, opts...)...)
	return h
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Should log success and not terminate", func(t *testing.T) {
		h := newHarness(t)
		p := f.write(t, f.issue(t, nil))

		require.NoError(t, h.checker.Login(ctx, p))
		assert.Empty(t, h.reasons)
		assert.Contains(t, h.out.String(), "license ok: product=novacore-demo")
	})

	t.Run("Should terminate on mismatch", func(t *testing.T) {
		h := newHarness(t)
		p := f.write(t, f.issue(t, func(l *license.License) { l.Product = "someone-else" }))

		require.NoError(t, h.checker.Login(ctx, p))
		require.Len(t, h.reasons, 1)
		assert.Contains(t, h.reasons[0], "product")
		assert.Contains(t, h.out.String(), "license mismatch (1)")
	})

	t.Run("Should treat a foreign signature as a mismatch", func(t *testing.T) {
		h := newHarness(t)
		other := newFixture(t)
		p := f.write(t, other.issue(t, nil))

		res, err := h.checker.Check(ctx, p, ModeNoExit)
		require.NoError(t, err)
		require.Len(t, res.Mismatches, 1)
		assert.Equal(t, "signature", res.Mismatches[0].Field)
	})

	t.Run("Should bind to the machine code", func(t *testing.T) {
		h := newHarness(t)
		p := f.write(t, f.issue(t, func(l *license.License) { l.MachineCode = "MACHINE-B" }))

		res, err := h.checker.Check(ctx, p, ModeNoExit)
		require.NoError(t, err)
		require.Len(t, res.Mismatches, 1)
		assert.Equal(t, "machine_code", res.Mismatches[0].Field)
		assert.Equal(t, "MACHINE-A", res.Mismatches[0].Have)
	})
}

func TestLoginSilent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Should stay quiet on success", func(t *testing.T) {
		h := newHarness(t)
		p := f.write(t, f.issue(t, nil))

		require.NoError(t, h.checker.LoginSilent(ctx, p))
		assert.Empty(t, h.out.String())
		assert.Empty(t, h.reasons)
	})

	t.Run("Should speak up and terminate on mismatch", func(t *testing.T) {
		h := newHarness(t)
		p := f.write(t, f.issue(t, func(l *license.License) { l.ExpiresAt = fixedNow.Add(-time.Hour) }))

		require.NoError(t, h.checker.LoginSilent(ctx, p))
		require.Len(t, h.reasons, 1)
		assert.Contains(t, h.out.String(), "expires_at")
	})

	t.Run("Should return config errors instead of terminating", func(t *testing.T) {
		h := newHarness(t)
		err := h.checker.LoginSilent(ctx, filepath.Join(t.TempDir(), "missing.json"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.Empty(t, h.reasons)
	})
}

func TestLoginNoExit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("Should report mismatches without terminating", func(t *testing.T) {
		h := newHarness(t)
		p := f.write(t, f.issue(t, func(l *license.License) { l.Features = []string{"export"} }))

		require.NoError(t, h.checker.LoginNoExit(ctx, p))
		assert.Empty(t, h.reasons)
		assert.Contains(t, h.out.String(), `feature: want "core"`)
		assert.Contains(t, h.out.String(), "continuing despite license mismatch")
	})

	t.Run("Should still return errors for a config without license", func(t *testing.T) {
		h := newHarness(t)
		p := f.write(t, "")

		err := h.checker.LoginNoExit(ctx, p)
		assert.ErrorIs(t, err, ErrLicenseMissing)
		assert.Empty(t, h.reasons)
	})

	t.Run("Should reject unusable key material", func(t *testing.T) {
		h := newHarness(t)
		bad := *f
		bad.cfg.Keys.PublicKey = "c2hvcnQ"
		p := bad.write(t, f.issue(t, nil))

		err := h.checker.LoginNoExit(ctx, p)
		assert.ErrorIs(t, err, ErrKeyMaterial)
	})
}

func TestRecorders(t *testing.T) {
	f := newFixture(t)
	var seen []*Result
	rec := RecorderFunc(func(_ context.Context, r *Result) error {
		seen = append(seen, r)
		return nil
	})
	h := newHarness(t, WithRecorders(rec))
	ctx := context.Background()

	_, err := h.checker.Check(ctx, f.write(t, f.issue(t, nil)), ModeSilent)
	require.NoError(t, err)
	_, err = h.checker.Check(ctx, filepath.Join(t.TempDir(), "missing.json"), ModeNoExit)
	require.Error(t, err)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].OK())
	assert.Equal(t, ModeSilent, seen[0].Mode)
	assert.False(t, seen[1].OK())
	assert.Contains(t, seen[1].Error, "config not found")
}

func TestTerminatorIgnoresNilHandler(t *testing.T) {
	called := false
	term := NewTerminator()
	term.SetHandler(func(string) { called = true })
	term.SetHandler(nil)
	term.Terminate("x")
	assert.True(t, called)
}
