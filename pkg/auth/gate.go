package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/debug"
	"github.com/osuosl/timesync/pkg/observability"
)

// Gate wraps protected handlers. It extracts the credential presentation
// from the request, dispatches to the matching verifier, and only invokes
// the wrapped handler on success, with the resolved principal in the
// request context. On failure it writes the error envelope and the handler
// never runs.
type Gate struct {
	primaries map[string]PrimaryVerifier
	tokens    TokenVerifier
}

// NewGate creates a gate dispatching token credentials to tokens. Primary
// credential types are disabled until enabled with EnablePrimary.
func NewGate(tokens TokenVerifier) *Gate {
	return &Gate{
		primaries: make(map[string]PrimaryVerifier),
		tokens:    tokens,
	}
}

// EnablePrimary registers a verifier for a primary credential type
// ("password" or "ldap"). Types without a verifier are rejected as invalid.
func (g *Gate) EnablePrimary(credType string, v PrimaryVerifier) {
	g.primaries[credType] = v
}

// requestWrapper is the body envelope of state-changing requests: the
// credential block plus the actual object being sent.
type requestWrapper struct {
	Auth   *Credentials    `json:"auth"`
	Object json.RawMessage `json:"object"`
}

// extract pulls the credential presentation out of the request. Idempotent
// methods carry a token query parameter; state-changing methods carry a
// body wrapper, whose object block replaces the request body so handlers
// never see the auth wrapper.
func extract(r *http.Request) (*Credentials, *api.Error) {
	switch r.Method {
	case http.MethodGet, http.MethodDelete:
		tok := r.URL.Query().Get("token")
		if tok == "" {
			return nil, api.AuthenticationFailure("Missing credentials")
		}
		return &Credentials{Type: TypeToken, Token: tok}, nil

	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, api.AuthenticationFailure("Missing credentials")
		}
		r.Body.Close()

		var wrapper requestWrapper
		if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Auth == nil {
			return nil, api.AuthenticationFailure("Missing credentials")
		}

		r.Body = io.NopCloser(bytes.NewReader(wrapper.Object))
		r.ContentLength = int64(len(wrapper.Object))

		return wrapper.Auth, nil
	}
}

// Authenticate dispatches a credential presentation to the matching
// verifier. Both the gate and the login handler route through here.
func (g *Gate) Authenticate(r *http.Request, creds *Credentials) (*api.User, error) {
	ctx := r.Context()

	switch creds.Type {
	case TypeToken:
		if creds.Token == "" {
			return nil, api.AuthenticationFailure("Missing token")
		}
		return g.tokens.Verify(ctx, creds.Token)

	default:
		verifier, ok := g.primaries[creds.Type]
		if !ok {
			return nil, api.AuthenticationTypeFailure(creds.Type)
		}
		if creds.Username == "" {
			return nil, api.AuthenticationFailure("Missing username")
		}
		if creds.Password == "" {
			return nil, api.AuthenticationFailure("Missing password")
		}
		return verifier.Authenticate(ctx, creds.Username, creds.Password)
	}
}

// Protect wraps a handler behind credential verification.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, apiErr := extract(r)
		if apiErr != nil {
			observability.AuthAttemptsTotal.WithLabelValues("none", "failure").Inc()
			api.WriteError(w, apiErr)
			return
		}

		u, err := g.Authenticate(r, creds)
		if err != nil {
			debug.Log("auth", "authentication failed",
				"type", creds.Type, "path", r.URL.Path)
			observability.AuthAttemptsTotal.WithLabelValues(creds.Type, "failure").Inc()
			writeAuthError(w, r, err)
			return
		}

		observability.AuthAttemptsTotal.WithLabelValues(creds.Type, "success").Inc()
		next.ServeHTTP(w, r.WithContext(SetPrincipal(r.Context(), u)))
	})
}

// writeAuthError maps a verifier error onto the wire. Anything that is not
// already an envelope is an internal fault: logged in full, reported
// generically.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		api.WriteError(w, apiErr)
		return
	}

	slog.Error("authentication backend failure",
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"error", err,
	)
	api.WriteError(w, api.ServerError())
}
