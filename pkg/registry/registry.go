// Package registry provides the server-side token registry: a key-value
// store recording "token issued, not yet expired or revoked", keyed by the
// exact token string, with a time-to-live.
//
// Entries silently disappear once their TTL elapses. Callers must treat
// absence as an invalid token, never as a distinct error.
package registry

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for registry operations.
var (
	// ErrDuplicateToken is returned when registering a token string that is
	// already present. Duplicate issuance is rejected, not overwritten.
	ErrDuplicateToken = errors.New("token already registered")
)

// Registry records issued tokens until they expire or are revoked.
type Registry interface {
	// Register inserts the token only if absent, expiring after ttl.
	// The insert-if-absent check and the TTL are atomic at the storage
	// layer.
	Register(ctx context.Context, token string, ttl time.Duration) error

	// Exists reports whether the token is still registered. It is the fast
	// revocation/expiry gate that runs before signature verification.
	Exists(ctx context.Context, token string) (bool, error)

	// Revoke deletes the token, invalidating it immediately. Revoking an
	// absent token is not an error.
	Revoke(ctx context.Context, token string) error

	// Close releases the underlying connection, if any.
	Close() error
}
