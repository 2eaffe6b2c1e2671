package ttls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selfSigned(t *testing.T, names ...string) (certPEM, keyPEM string, leaf *x509.Certificate) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: names[0]},
		DNSNames:     names,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tpl, tpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	leaf, err = x509.ParseCertificate(der)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	certPEM = string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}))
	return certPEM, keyPEM, leaf
}

func TestLoadServerConfig(t *testing.T) {
	t.Run("Should load inline PEM", func(t *testing.T) {
		c, k, _ := selfSigned(t, "license.example.com")
		cfg, err := LoadServerConfig(c, k, "")
		require.NoError(t, err)
		require.Len(t, cfg.Certificates, 1)
		assert.NotNil(t, cfg.Certificates[0].Leaf)
	})

	t.Run("Should reject an empty pair", func(t *testing.T) {
		_, err := LoadServerConfig("", "x", "")
		assert.ErrorIs(t, err, ErrNoKeyPair)
		assert.False(t, Enabled(" ", "x"))
	})

	t.Run("Should reject a missing cert file", func(t *testing.T) {
		_, err := LoadServerConfig("/nonexistent/cert.pem", "/nonexistent/key.pem", "")
		assert.Error(t, err)
	})
}

func TestCheckSNI(t *testing.T) {
	_, _, leaf := selfSigned(t, "license.example.com")
	guard := []string{"*.example.com"}

	t.Run("Should pass with the guard disabled", func(t *testing.T) {
		assert.NoError(t, checkSNI("", nil, leaf))
	})
	t.Run("Should require SNI", func(t *testing.T) {
		assert.Error(t, checkSNI("", guard, leaf))
	})
	t.Run("Should reject hosts outside the list", func(t *testing.T) {
		assert.Error(t, checkSNI("evil.org", guard, leaf))
	})
	t.Run("Should reject hosts the certificate does not cover", func(t *testing.T) {
		assert.Error(t, checkSNI("other.example.com", guard, leaf))
	})
	t.Run("Should accept a covered host", func(t *testing.T) {
		assert.NoError(t, checkSNI("License.Example.com", guard, leaf))
	})
}
