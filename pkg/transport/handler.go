// Package transport serves the timesync API over HTTP. It routes requests
// to the store-backed handlers, applies the authentication gate to every
// protected route, and owns the HTTP-level middleware (request ID, logging,
// recovery) and server lifecycle.
package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/auth"
	"github.com/osuosl/timesync/pkg/observability"
	"github.com/osuosl/timesync/pkg/registry"
	"github.com/osuosl/timesync/pkg/storage"
	"github.com/osuosl/timesync/pkg/token"
)

// Handler routes the versioned API. All routes under /v1 except login pass
// through the authentication gate.
type Handler struct {
	store    storage.Store
	gate     *auth.Gate
	issuer   *token.Issuer
	registry registry.Registry

	metricsEnabled bool
	metricsPath    string
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics exposes the Prometheus endpoint at path and wraps every
// request in the metrics middleware.
func WithMetrics(path string) Option {
	return func(h *Handler) {
		h.metricsEnabled = true
		h.metricsPath = path
	}
}

// NewHandler creates the API handler. The registry is needed alongside the
// gate so logout can revoke the presenting token.
func NewHandler(store storage.Store, gate *auth.Gate, issuer *token.Issuer, reg registry.Registry, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		gate:     gate,
		issuer:   issuer,
		registry: reg,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes builds the full http.Handler: routed endpoints wrapped in the
// middleware stack.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /v1/login", h.handleLogin)

	protect := func(fn http.HandlerFunc) http.Handler {
		return h.gate.Protect(fn)
	}

	mux.Handle("DELETE /v1/logout", protect(h.handleLogout))

	mux.Handle("GET /v1/users", protect(h.handleListUsers))
	mux.Handle("GET /v1/users/{username}", protect(h.handleGetUser))
	mux.Handle("POST /v1/users", protect(h.handleCreateUser))
	mux.Handle("POST /v1/users/{username}", protect(h.handleUpdateUser))
	mux.Handle("DELETE /v1/users/{username}", protect(h.handleDeleteUser))

	mux.Handle("GET /v1/projects", protect(h.handleListProjects))
	mux.Handle("GET /v1/projects/{slug}", protect(h.handleGetProject))
	mux.Handle("POST /v1/projects", protect(h.handleCreateProject))
	mux.Handle("POST /v1/projects/{slug}", protect(h.handleUpdateProject))
	mux.Handle("DELETE /v1/projects/{slug}", protect(h.handleDeleteProject))

	mux.Handle("GET /v1/activities", protect(h.handleListActivities))
	mux.Handle("GET /v1/activities/{slug}", protect(h.handleGetActivity))
	mux.Handle("POST /v1/activities", protect(h.handleCreateActivity))
	mux.Handle("POST /v1/activities/{slug}", protect(h.handleUpdateActivity))
	mux.Handle("DELETE /v1/activities/{slug}", protect(h.handleDeleteActivity))

	mux.Handle("GET /v1/times", protect(h.handleListTimes))
	mux.Handle("GET /v1/times/summary", protect(h.handleSummarizeTimes))
	mux.Handle("GET /v1/times/{id}", protect(h.handleGetTime))
	mux.Handle("POST /v1/times", protect(h.handleCreateTime))
	mux.Handle("POST /v1/times/{id}", protect(h.handleUpdateTime))
	mux.Handle("DELETE /v1/times/{id}", protect(h.handleDeleteTime))

	var handler http.Handler = mux
	if h.metricsEnabled {
		mux.Handle("GET "+h.metricsPath, promhttp.Handler())
		handler = observability.MetricsMiddleware(handler)
	}

	return Chain(handler, Recovery, Logging, RequestID)
}

// respond writes v as a JSON response.
func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto the wire envelope. Storage sentinels are
// translated per object kind; anything unrecognized is logged and reported
// as a generic server error.
func writeError(w http.ResponseWriter, r *http.Request, kind string, err error) {
	var apiErr *api.Error
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, storage.ErrNotFound):
		apiErr = api.ObjectNotFound(kind)
	case errors.Is(err, storage.ErrConflict):
		apiErr = api.BadObject(kind, "identifier already in use")
	default:
		slog.Error("request failed",
			"path", r.URL.Path,
			"method", r.Method,
			"error", err,
		)
		apiErr = api.ServerError()
	}
	api.WriteError(w, apiErr)
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeBody parses the JSON request body into v. By the time a protected
// handler runs, the gate has already stripped the auth wrapper and the body
// holds only the object block.
func decodeBody(w http.ResponseWriter, r *http.Request, kind string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.WriteError(w, api.BadObject(kind, "invalid JSON body"))
		return false
	}
	return true
}
