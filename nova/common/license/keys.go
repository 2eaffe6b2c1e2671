package license

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

func GenerateEd25519Key() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

func GenerateAES256Key() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateAES256KeyStrings returns the same fresh key as base64url (no padding) and hex.
func GenerateAES256KeyStrings() (b64url string, hexstr string, err error) {
	key, err := GenerateAES256Key()
	if err != nil {
		return "", "", err
	}
	return b64e(key), hex.EncodeToString(key), nil
}

func EncodeKey(b []byte) string { return b64e(b) }

// ParseAES256Key accepts base64url/base64/hex and requires 32 bytes.
func ParseAES256Key(s string) ([]byte, error) {
	b, err := decodeSized(s, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: aes key: %v", ErrKey, err)
	}
	return b, nil
}

func ParseEd25519PublicKey(s string) (ed25519.PublicKey, error) {
	b, err := decodeSized(s, ed25519.PublicKeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: ed25519 public key: %v", ErrKey, err)
	}
	return ed25519.PublicKey(b), nil
}

// ParseEd25519PrivateKey accepts a 32-byte seed or a 64-byte key.
func ParseEd25519PrivateKey(s string) (ed25519.PrivateKey, error) {
	b, err := decodeSized(s, ed25519.SeedSize, ed25519.PrivateKeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: ed25519 private key: %v", ErrKey, err)
	}
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, fmt.Errorf("%w: ed25519 private key must be 32-byte seed or 64-byte key, got %d", ErrKey, len(b))
	}
}

// ParseAAD decodes s when it is an encoded value, otherwise uses the raw text.
func ParseAAD(s string) []byte {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if b, err := decodeFlexible(s); err == nil {
		return b
	}
	return []byte(s)
}

func b64e(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func b64dFlexible(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("invalid base64")
}

// decodeAll returns every successful base64url/base64/hex decoding of s, in that order.
func decodeAll(s string) [][]byte {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out [][]byte
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.StdEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			out = append(out, b)
		}
	}
	if b, err := hex.DecodeString(s); err == nil {
		out = append(out, b)
	}
	return out
}

func decodeFlexible(s string) ([]byte, error) {
	all := decodeAll(s)
	if len(all) == 0 {
		return nil, fmt.Errorf("unsupported encoding for: %q", preview(s))
	}
	return all[0], nil
}

// decodeSized picks the first decoding whose length is one of sizes.
func decodeSized(s string, sizes ...int) ([]byte, error) {
	all := decodeAll(s)
	if len(all) == 0 {
		return nil, fmt.Errorf("unsupported encoding for: %q", preview(s))
	}
	for _, b := range all {
		for _, n := range sizes {
			if len(b) == n {
				return b, nil
			}
		}
	}
	return nil, fmt.Errorf("want %v bytes, got %d", sizes, len(all[0]))
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	return s[:min(12, len(s))]
}
