package license

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type licenseClaims struct {
	License License `json:"lic"`
	jwt.RegisteredClaims
}

func issueJWT(lic *License, sk ed25519.PrivateKey) (string, error) {
	claims := licenseClaims{
		License: *lic,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:      lic.Serial,
			Subject: lic.Owner,
		},
	}
	if lic.Product != "" {
		claims.Audience = jwt.ClaimStrings{lic.Product}
	}
	if !lic.IssuedAt.IsZero() {
		claims.IssuedAt = jwt.NewNumericDate(lic.IssuedAt)
	}
	if !lic.NotBefore.IsZero() {
		claims.NotBefore = jwt.NewNumericDate(lic.NotBefore)
	}
	if !lic.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(lic.ExpiresAt)
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(sk)
}

// parseJWT only authenticates; time checks are left to Validate so they surface as mismatches.
func parseJWT(token string, pk ed25519.PublicKey) (*License, error) {
	parsed, err := jwt.ParseWithClaims(token, &licenseClaims{}, func(*jwt.Token) (any, error) {
		return pk, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c, ok := parsed.Claims.(*licenseClaims)
	if !ok || !parsed.Valid {
		return nil, ErrSignature
	}
	return &c.License, nil
}
