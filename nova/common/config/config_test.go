package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VeduStorm/NovaCore/nova/common"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	t.Run("Should decode JSON and fill defaults", func(t *testing.T) {
		p := writeFile(t, "config.json", `{
  "license": "abc",
  "product": "novacore-demo",
  "features": ["core"],
  "logging": {"level": "debug"},
  "server": {"listen": "0.0.0.0:9000"}
}`)
		c, resolved, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, p, resolved)
		assert.Equal(t, "abc", c.License)
		assert.Equal(t, []string{"core"}, c.Features)
		assert.Equal(t, "0.0.0.0:9000", c.Server.Listen)
		assert.Equal(t, DefaultTokenTTL, c.Server.TokenTTL)
		assert.Equal(t, common.PK, c.Keys.PublicKey)
		assert.Equal(t, "sqlite", c.Audit.Driver)
		assert.Contains(t, c.Audit.DSN, "audit.db")
	})

	t.Run("Should decode YAML by extension", func(t *testing.T) {
		p := writeFile(t, "config.yaml", "license: xyz\nowner: ops@example.com\nkeys:\n  aad: custom\n")
		c, _, err := Load(p)
		require.NoError(t, err)
		assert.Equal(t, "xyz", c.License)
		assert.Equal(t, "ops@example.com", c.Owner)
		assert.Equal(t, "custom", c.Keys.AAD)
	})

	t.Run("Should report a missing file as not found", func(t *testing.T) {
		_, resolved, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.Contains(t, resolved, "nope.json")
	})

	t.Run("Should report broken JSON as malformed", func(t *testing.T) {
		p := writeFile(t, "config.json", `{"license": `)
		_, _, err := Load(p)
		assert.ErrorIs(t, err, ErrConfigMalformed)
	})
}

func TestEnsureDirForFileDSN(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDirForFileDSN("file:"+filepath.ToSlash(filepath.Join(dir, "x.db"))+"?_busy_timeout=1"))
	_, err := os.Stat(dir)
	assert.NoError(t, err)
	assert.NoError(t, EnsureDirForFileDSN("file::memory:?cache=shared"))
	assert.NoError(t, EnsureDirForFileDSN("user:pw@tcp(localhost)/db"))
}
