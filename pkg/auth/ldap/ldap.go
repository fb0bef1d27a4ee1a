// Package ldap verifies primary credentials against a directory service.
// The user must still exist in the local store; the directory only vouches
// for the password.
package ldap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/auth"
	"github.com/osuosl/timesync/pkg/storage"
)

// Config holds directory connection settings.
type Config struct {
	// URL of the directory server (ldap:// or ldaps://).
	URL string

	// BindDN is a template with a single %s for the escaped username,
	// e.g. "uid=%s,ou=people,dc=osuosl,dc=org".
	BindDN string

	// StartTLS upgrades a plain ldap:// connection before binding.
	StartTLS bool
}

// Verifier binds to the directory with the caller's credentials.
type Verifier struct {
	cfg   Config
	users storage.Users
}

var _ auth.PrimaryVerifier = (*Verifier)(nil)

// New creates a directory-backed primary verifier.
func New(cfg Config, users storage.Users) *Verifier {
	return &Verifier{cfg: cfg, users: users}
}

// Authenticate resolves the username locally, then attempts a simple bind
// as that user. A failed bind is reported as a bad password; directory
// connectivity problems surface as internal errors, not credential
// failures.
func (v *Verifier) Authenticate(ctx context.Context, username, password string) (*api.User, error) {
	u, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, api.AuthenticationFailure("Incorrect username.")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	conn, err := ldap.DialURL(v.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to directory: %w", err)
	}
	defer conn.Close()

	if v.cfg.StartTLS {
		if err := conn.StartTLS(&tls.Config{MinVersion: tls.VersionTLS12}); err != nil {
			return nil, fmt.Errorf("starting TLS: %w", err)
		}
	}

	dn := fmt.Sprintf(v.cfg.BindDN, ldap.EscapeDN(username))
	if err := conn.Bind(dn, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, api.AuthenticationFailure("Incorrect password.")
		}
		return nil, fmt.Errorf("binding as %s: %w", dn, err)
	}

	return u, nil
}
