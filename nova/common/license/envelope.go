package license

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope algorithms.
const (
	AlgoEd25519        = "ed25519"
	AlgoEd25519AESGCM  = "ed25519+aesgcm"
	AlgoEd25519XChaCha = "ed25519+xchacha20"
)

const envelopeVersion = 1

// envelope is the JSON carried, base64url encoded, as the single-line license string.
type envelope struct {
	V     int    `json:"v"`
	Algo  string `json:"algo"`
	Enc   string `json:"enc,omitempty"`   // base64url(nonce|ciphertext|tag)
	Plain string `json:"plain,omitempty"` // base64url(payload)
	Sig   string `json:"sig"`             // base64url(ed25519 over payload)
}

// marshalCanonical encodes the payload in struct field order, without HTML escaping or a trailing newline.
func marshalCanonical(l *License) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(l); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func newAEAD(algo string, key []byte) (cipher.AEAD, error) {
	switch algo {
	case AlgoEd25519AESGCM:
		if n := len(key); n != 16 && n != 24 && n != 32 {
			return nil, fmt.Errorf("%w: aes key must be 16/24/32 bytes", ErrKey)
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	case AlgoEd25519XChaCha:
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("%w: xchacha20 key must be %d bytes", ErrKey, chacha20poly1305.KeySize)
		}
		return chacha20poly1305.NewX(key)
	default:
		return nil, fmt.Errorf("%w: algo %s", ErrUnsupported, algo)
	}
}

func seal(algo string, key, plaintext, aad []byte) ([]byte, error) {
	aead, err := newAEAD(algo, key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

func open(algo string, key, raw, aad []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: secret key required for %s", ErrKey, algo)
	}
	aead, err := newAEAD(algo, key)
	if err != nil {
		return nil, err
	}
	ns := aead.NonceSize()
	if len(raw) < ns+aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}
	plain, err := aead.Open(nil, raw[:ns], raw[ns:], aad)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}
	return plain, nil
}

func decodeEnvelope(token string) (*envelope, error) {
	raw, err := b64dFlexible(token)
	if err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrMalformed, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: parse envelope: %v", ErrMalformed, err)
	}
	if env.V != envelopeVersion {
		return nil, fmt.Errorf("%w: envelope version %d", ErrUnsupported, env.V)
	}
	if env.Sig == "" {
		return nil, errors.Join(ErrMalformed, errors.New("missing sig"))
	}
	return &env, nil
}
