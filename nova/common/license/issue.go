package license

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Token formats.
const (
	FormatEnvelope = "envelope"
	FormatJWT      = "jwt"
)

type IssueOptions struct {
	Format     string // FormatEnvelope (default) or FormatJWT
	Algo       string // envelope only; defaults to AlgoEd25519, or AlgoEd25519AESGCM when SecretKey is set
	SigningKey ed25519.PrivateKey
	SecretKey  []byte // envelope encryption key
	AAD        []byte
}

// Issue signs lic and returns the single-line license string.
func Issue(lic License, opt IssueOptions) (string, error) {
	if len(opt.SigningKey) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("%w: signing key required", ErrKey)
	}
	switch strings.ToLower(strings.TrimSpace(opt.Format)) {
	case "", FormatEnvelope:
		return issueEnvelope(&lic, opt)
	case FormatJWT:
		return issueJWT(&lic, opt.SigningKey)
	default:
		return "", fmt.Errorf("%w: format %s", ErrUnsupported, opt.Format)
	}
}

func issueEnvelope(lic *License, opt IssueOptions) (string, error) {
	canon, err := marshalCanonical(lic)
	if err != nil {
		return "", err
	}
	algo := opt.Algo
	if algo == "" {
		algo = AlgoEd25519
		if len(opt.SecretKey) > 0 {
			algo = AlgoEd25519AESGCM
		}
	}

	env := envelope{V: envelopeVersion, Algo: algo}
	switch algo {
	case AlgoEd25519:
		env.Plain = b64e(canon)
	case AlgoEd25519AESGCM, AlgoEd25519XChaCha:
		raw, err := seal(algo, opt.SecretKey, canon, opt.AAD)
		if err != nil {
			return "", err
		}
		env.Enc = b64e(raw)
	default:
		return "", fmt.Errorf("%w: algo %s", ErrUnsupported, algo)
	}
	env.Sig = b64e(ed25519.Sign(opt.SigningKey, canon))

	j, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return b64e(j), nil
}
