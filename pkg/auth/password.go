package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/storage"
)

// Passwords verifies username/password pairs against bcrypt hashes in the
// user store.
type Passwords struct {
	users storage.Users
}

var _ PrimaryVerifier = (*Passwords)(nil)

// NewPasswords creates a password verifier over the given user store.
func NewPasswords(users storage.Users) *Passwords {
	return &Passwords{users: users}
}

// Authenticate resolves the username and compares the password against the
// stored bcrypt hash. The two failure messages are distinct on purpose:
// unlike tokens, username existence is not treated as a secret here, and
// the original API contract exposes which half failed.
func (p *Passwords) Authenticate(ctx context.Context, username, password string) (*api.User, error) {
	u, err := p.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, api.AuthenticationFailure("Incorrect username.")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, api.AuthenticationFailure("Incorrect password.")
	}

	return u, nil
}

// HashPassword produces a bcrypt hash for storing a new password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
