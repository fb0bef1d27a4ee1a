package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/debug"
	"github.com/osuosl/timesync/pkg/registry"
	"github.com/osuosl/timesync/pkg/storage"
)

// Verifier resolves presented token strings to users. Every token failure —
// unregistered, malformed, bad signature, expired, wrong issuer, unknown
// subject — surfaces as the same "Bad API token" error so callers cannot
// probe which check failed.
type Verifier struct {
	codec    *Codec
	registry registry.Registry
	users    storage.Users
	instance string
	maxAge   time.Duration

	now func() time.Time
}

// NewVerifier creates a verifier bound to the given registry and user store.
func NewVerifier(codec *Codec, reg registry.Registry, users storage.Users, instance string, maxAge time.Duration) *Verifier {
	return &Verifier{
		codec:    codec,
		registry: reg,
		users:    users,
		instance: instance,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Verify checks a presented token and returns the user it belongs to.
// The registry membership check runs first, before any signature work, so a
// revoked or expired entry is rejected cheaply. A registry or store outage
// returns a wrapped error distinct from *api.Error.
func (v *Verifier) Verify(ctx context.Context, presented string) (*api.User, error) {
	// URL transport decodes `+` in query strings to a space; restore it.
	tok := strings.ReplaceAll(presented, " ", "+")

	ok, err := v.registry.Exists(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("checking token registry: %w", err)
	}
	if !ok {
		debug.Log("token", "token not in registry", "token", debug.Truncate(tok, 12))
		return nil, api.BadToken()
	}

	claims, err := v.codec.Decode(tok)
	if err != nil {
		debug.Log("token", "token decode failed", "error", err)
		return nil, api.BadToken()
	}

	if claims.Issuer != v.instance {
		debug.Log("token", "issuer mismatch", "issuer", claims.Issuer)
		return nil, api.BadToken()
	}

	// The expiry claim and issued-at + max-age are checked separately, on
	// top of the registry's own TTL. The redundancy is deliberate: a stale
	// registry entry or a re-registered token still dies on its claims.
	now := v.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, api.BadToken()
	}
	if claims.IssuedAt == nil || !now.Before(claims.IssuedAt.Time.Add(v.maxAge)) {
		return nil, api.BadToken()
	}

	u, err := v.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Same message as any other token failure; a deleted user's
			// token must not confirm the username ever existed.
			return nil, api.BadToken()
		}
		return nil, fmt.Errorf("resolving token subject: %w", err)
	}

	return u, nil
}
