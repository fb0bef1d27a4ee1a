package auth

import (
	"context"

	"github.com/osuosl/timesync/pkg/api"
)

// principalKey is a private type for the principal context key.
type principalKey struct{}

// SetPrincipal stores the authenticated user in the context.
func SetPrincipal(ctx context.Context, u *api.User) context.Context {
	return context.WithValue(ctx, principalKey{}, u)
}

// PrincipalFromContext retrieves the authenticated user.
// Returns nil if the request did not pass through the gate.
func PrincipalFromContext(ctx context.Context) *api.User {
	if v, ok := ctx.Value(principalKey{}).(*api.User); ok {
		return v
	}
	return nil
}
