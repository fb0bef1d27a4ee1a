package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/osuosl/timesync/pkg/registry"
)

// Issuer mints tokens for authenticated users and records them in the
// registry with a TTL matching the token's own expiry.
type Issuer struct {
	codec    *Codec
	registry registry.Registry
	instance string
	maxAge   time.Duration

	now func() time.Time
}

// NewIssuer creates an issuer. instance becomes the issuer claim of every
// minted token; maxAge bounds both the expiry claim and the registry TTL.
func NewIssuer(codec *Codec, reg registry.Registry, instance string, maxAge time.Duration) *Issuer {
	return &Issuer{
		codec:    codec,
		registry: reg,
		instance: instance,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Issue mints a token for username and registers it. The caller is expected
// to have already verified the user's primary credentials.
func (i *Issuer) Issue(ctx context.Context, username string) (string, error) {
	now := i.now()

	tok, err := i.codec.Encode(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.instance,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.maxAge)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding token: %w", err)
	}

	if err := i.registry.Register(ctx, tok, i.maxAge); err != nil {
		return "", fmt.Errorf("registering token: %w", err)
	}

	return tok, nil
}
