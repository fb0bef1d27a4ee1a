// Package auth implements credential handling for the API: the credential
// presentation parsed out of each request, the primary verifiers that check
// username/password pairs, and the gate middleware that protects handlers.
package auth

import (
	"context"

	"github.com/osuosl/timesync/pkg/api"
)

// Supported credential types.
const (
	TypePassword = "password"
	TypeLDAP     = "ldap"
	TypeToken    = "token"
)

// Credentials is the tagged credential variant carried by a request.
// Exactly one variant is active: Username/Password for the password and
// ldap types, Token for the token type.
type Credentials struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// PrimaryVerifier checks a username/password pair against some backing
// authority and resolves it to a user. Failures return *api.Error with a
// caller-safe message; any other error is an internal fault.
type PrimaryVerifier interface {
	Authenticate(ctx context.Context, username, password string) (*api.User, error)
}

// TokenVerifier resolves a presented bearer token to a user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*api.User, error)
}
