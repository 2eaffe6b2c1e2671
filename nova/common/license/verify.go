package license

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

type VerifyOptions struct {
	PublicKey ed25519.PublicKey
	SecretKey []byte // needed for encrypted envelopes
	AAD       []byte // must match what the issuer used
}

// DetectFormat tells a compact JWS apart from an envelope string.
func DetectFormat(token string) string {
	if strings.Count(strings.TrimSpace(token), ".") == 2 {
		return FormatJWT
	}
	return FormatEnvelope
}

// Parse decodes and authenticates token. It does not apply Validate.
func Parse(token string, opt VerifyOptions) (*License, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformed)
	}
	if len(opt.PublicKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key required", ErrKey)
	}
	if DetectFormat(token) == FormatJWT {
		return parseJWT(token, opt.PublicKey)
	}
	return parseEnvelope(token, opt)
}

func parseEnvelope(token string, opt VerifyOptions) (*License, error) {
	env, err := decodeEnvelope(token)
	if err != nil {
		return nil, err
	}

	var canon []byte
	switch env.Algo {
	case AlgoEd25519:
		if env.Plain == "" {
			return nil, fmt.Errorf("%w: missing plain", ErrMalformed)
		}
		if canon, err = b64dFlexible(env.Plain); err != nil {
			return nil, fmt.Errorf("%w: decode plain: %v", ErrMalformed, err)
		}
	case AlgoEd25519AESGCM, AlgoEd25519XChaCha:
		if env.Enc == "" {
			return nil, fmt.Errorf("%w: missing enc", ErrMalformed)
		}
		raw, err := b64dFlexible(env.Enc)
		if err != nil {
			return nil, fmt.Errorf("%w: decode enc: %v", ErrMalformed, err)
		}
		if canon, err = open(env.Algo, opt.SecretKey, raw, opt.AAD); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: algo %s", ErrUnsupported, env.Algo)
	}

	sig, err := b64dFlexible(env.Sig)
	if err != nil {
		return nil, fmt.Errorf("%w: decode sig: %v", ErrMalformed, err)
	}
	if !ed25519.Verify(opt.PublicKey, canon, sig) {
		return nil, ErrSignature
	}

	var lic License
	if err := json.Unmarshal(canon, &lic); err != nil {
		return nil, fmt.Errorf("%w: parse payload: %v", ErrMalformed, err)
	}
	return &lic, nil
}
