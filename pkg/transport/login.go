package transport

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/auth"
	"github.com/osuosl/timesync/pkg/observability"
)

// loginRequest is the login body. Login carries no object block, only the
// credential presentation.
type loginRequest struct {
	Auth *auth.Credentials `json:"auth"`
}

// loginResponse carries the minted token.
type loginResponse struct {
	Token string `json:"token"`
}

// handleLogin verifies primary credentials and responds with a fresh token.
// Tokens must never end up in shared caches, so the response carries
// no-cache directives and an already-expired Expires header.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.Auth == nil {
		observability.AuthAttemptsTotal.WithLabelValues("none", "failure").Inc()
		api.WriteError(w, api.AuthenticationFailure("Missing credentials"))
		return
	}

	// A token cannot buy another token.
	if req.Auth.Type == auth.TypeToken {
		observability.AuthAttemptsTotal.WithLabelValues(req.Auth.Type, "failure").Inc()
		api.WriteError(w, api.AuthenticationTypeFailure(req.Auth.Type))
		return
	}

	u, err := h.gate.Authenticate(r, req.Auth)
	if err != nil {
		observability.AuthAttemptsTotal.WithLabelValues(req.Auth.Type, "failure").Inc()
		writeLoginError(w, r, err)
		return
	}

	tok, err := h.issuer.Issue(r.Context(), u.Username)
	if err != nil {
		slog.Error("token issuance failed", "username", u.Username, "error", err)
		api.WriteError(w, api.ServerError())
		return
	}

	observability.AuthAttemptsTotal.WithLabelValues(req.Auth.Type, "success").Inc()
	observability.TokensIssuedTotal.WithLabelValues(req.Auth.Type).Inc()

	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "Thu, 01 Jan 1970 00:00:00 GMT")
	respond(w, http.StatusOK, loginResponse{Token: tok})
}

// handleLogout revokes the presenting token. The gate has already verified
// it, so revocation failure here is an internal fault, not a client error.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	tok := strings.ReplaceAll(r.URL.Query().Get("token"), " ", "+")

	if err := h.registry.Revoke(r.Context(), tok); err != nil {
		slog.Error("token revocation failed", "error", err)
		api.WriteError(w, api.ServerError())
		return
	}

	observability.TokensRevokedTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		api.WriteError(w, apiErr)
		return
	}

	slog.Error("login backend failure", "remote_addr", r.RemoteAddr, "error", err)
	api.WriteError(w, api.ServerError())
}
