package transport

import (
	"log/slog"
	"net/http"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/auth"
)

// userRequest is the user object block. Password arrives in the clear and
// is stored only as a bcrypt hash.
type userRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	SiteAdmin   bool   `json:"site_admin"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Users().List(r.Context())
	if err != nil {
		writeError(w, r, "user", err)
		return
	}
	respond(w, http.StatusOK, users)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.store.Users().FindByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, "user", err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeBody(w, r, "user", &req) {
		return
	}

	if req.Username == "" {
		api.WriteError(w, api.BadObject("user", "username is required"))
		return
	}
	if req.Password == "" {
		api.WriteError(w, api.BadObject("user", "password is required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("password hashing failed", "error", err)
		api.WriteError(w, api.ServerError())
		return
	}

	u := &api.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: hash,
		SiteAdmin:    req.SiteAdmin,
	}
	if err := h.store.Users().Create(r.Context(), u); err != nil {
		writeError(w, r, "user", err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	var req userRequest
	if !decodeBody(w, r, "user", &req) {
		return
	}

	// Usernames are the stable identifier; renames are not supported.
	if req.Username != "" && req.Username != username {
		api.WriteError(w, api.BadObject("user", "username cannot be changed"))
		return
	}

	u, err := h.store.Users().FindByUsername(r.Context(), username)
	if err != nil {
		writeError(w, r, "user", err)
		return
	}

	if req.DisplayName != "" {
		u.DisplayName = req.DisplayName
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.Error("password hashing failed", "error", err)
			api.WriteError(w, api.ServerError())
			return
		}
		u.PasswordHash = hash
	}
	u.SiteAdmin = req.SiteAdmin

	if err := h.store.Users().Update(r.Context(), u); err != nil {
		writeError(w, r, "user", err)
		return
	}
	respond(w, http.StatusOK, u)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Users().Delete(r.Context(), r.PathValue("username")); err != nil {
		writeError(w, r, "user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
