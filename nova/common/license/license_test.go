package license

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLicense(now time.Time) License {
	return License{
		Serial:      "NC-0001",
		Product:     "novacore-demo",
		Owner:       "ops@example.com",
		Features:    []string{"core", "export"},
		IssuedAt:    now.Add(-time.Hour).UTC().Truncate(time.Second),
		ExpiresAt:   now.Add(90 * 24 * time.Hour).UTC().Truncate(time.Second),
		MachineCode: "",
	}
}

func TestIssueAndParse(t *testing.T) {
	pk, sk, err := GenerateEd25519Key()
	require.NoError(t, err)
	secret, err := GenerateAES256Key()
	require.NoError(t, err)
	aad := ParseAAD("novacore|license|v1")
	lic := sampleLicense(time.Now())

	cases := []struct {
		name string
		opt  IssueOptions
	}{
		{"plain envelope", IssueOptions{SigningKey: sk}},
		{"aes-gcm envelope", IssueOptions{SigningKey: sk, SecretKey: secret, AAD: aad}},
		{"xchacha envelope", IssueOptions{SigningKey: sk, SecretKey: secret, AAD: aad, Algo: AlgoEd25519XChaCha}},
		{"jwt", IssueOptions{SigningKey: sk, Format: FormatJWT}},
	}
	for _, tc := range cases {
		t.Run("Should verify a "+tc.name, func(t *testing.T) {
			token, err := Issue(lic, tc.opt)
			require.NoError(t, err)
			assert.NotContains(t, token, "\n")

			got, err := Parse(token, VerifyOptions{PublicKey: pk, SecretKey: secret, AAD: aad})
			require.NoError(t, err)
			assert.Equal(t, lic.Serial, got.Serial)
			assert.Equal(t, lic.Features, got.Features)
			assert.True(t, lic.ExpiresAt.Equal(got.ExpiresAt))
		})
	}
}

func TestParseRejects(t *testing.T) {
	pk, sk, err := GenerateEd25519Key()
	require.NoError(t, err)
	otherPK, _, err := GenerateEd25519Key()
	require.NoError(t, err)
	secret, err := GenerateAES256Key()
	require.NoError(t, err)
	lic := sampleLicense(time.Now())

	t.Run("Should report a signature error for a foreign public key", func(t *testing.T) {
		token, err := Issue(lic, IssueOptions{SigningKey: sk})
		require.NoError(t, err)
		_, err = Parse(token, VerifyOptions{PublicKey: otherPK})
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("Should report a signature error for a foreign jwt key", func(t *testing.T) {
		token, err := Issue(lic, IssueOptions{SigningKey: sk, Format: FormatJWT})
		require.NoError(t, err)
		_, err = Parse(token, VerifyOptions{PublicKey: otherPK})
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("Should fail decryption with the wrong AAD", func(t *testing.T) {
		token, err := Issue(lic, IssueOptions{SigningKey: sk, SecretKey: secret, AAD: []byte("a")})
		require.NoError(t, err)
		_, err = Parse(token, VerifyOptions{PublicKey: pk, SecretKey: secret, AAD: []byte("b")})
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("Should require the secret key for encrypted envelopes", func(t *testing.T) {
		token, err := Issue(lic, IssueOptions{SigningKey: sk, SecretKey: secret})
		require.NoError(t, err)
		_, err = Parse(token, VerifyOptions{PublicKey: pk})
		assert.ErrorIs(t, err, ErrKey)
	})

	t.Run("Should flag garbage as malformed", func(t *testing.T) {
		_, err := Parse("not a license!", VerifyOptions{PublicKey: pk})
		assert.ErrorIs(t, err, ErrMalformed)
		_, err = Parse("   ", VerifyOptions{PublicKey: pk})
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	exp := Expectation{Product: "NovaCore-Demo", Owner: "OPS@example.com", Features: []string{"core"}, MachineCode: "ABC"}

	t.Run("Should accept a fitting license", func(t *testing.T) {
		lic := sampleLicense(now)
		assert.Empty(t, Validate(&lic, exp, now))
	})

	t.Run("Should list every discrepancy", func(t *testing.T) {
		lic := sampleLicense(now)
		lic.Product = "other"
		lic.Features = []string{"export"}
		lic.ExpiresAt = now.Add(-time.Minute)
		lic.MachineCode = "DEF"

		fields := map[string]bool{}
		for _, m := range Validate(&lic, exp, now) {
			fields[m.Field] = true
		}
		assert.Equal(t, map[string]bool{"product": true, "feature": true, "expires_at": true, "machine_code": true}, fields)
	})

	t.Run("Should reject a license that is not valid yet or has no expiry", func(t *testing.T) {
		lic := sampleLicense(now)
		lic.NotBefore = now.Add(time.Hour)
		lic.ExpiresAt = time.Time{}
		ms := Validate(&lic, exp, now)
		require.Len(t, ms, 2)
		assert.Equal(t, "not_before", ms[0].Field)
		assert.Equal(t, "expires_at", ms[1].Field)
		assert.True(t, strings.HasPrefix(ms[1].String(), "expires_at: "))
	})

	t.Run("Should treat an unknown machine as a mismatch for bound licenses", func(t *testing.T) {
		lic := sampleLicense(now)
		lic.MachineCode = "ABC"
		ms := Validate(&lic, Expectation{}, now)
		require.Len(t, ms, 1)
		assert.Equal(t, "unknown", ms[0].Have)
	})
}

func TestParseAES256Key(t *testing.T) {
	b64, hx, err := GenerateAES256KeyStrings()
	require.NoError(t, err)

	fromB64, err := ParseAES256Key(b64)
	require.NoError(t, err)
	fromHex, err := ParseAES256Key(hx)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(fromB64), hex.EncodeToString(fromHex))

	_, err = ParseAES256Key("c2hvcnQ")
	assert.ErrorIs(t, err, ErrKey)
}
