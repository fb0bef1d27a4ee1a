package transport

import (
	"net/http"

	"github.com/osuosl/timesync/pkg/api"
)

func validateActivity(a *api.Activity) *api.Error {
	if a.Name == "" {
		return api.BadObject("activity", "name is required")
	}
	if !api.ValidSlug(a.Slug) {
		return api.BadObject("activity", "a well-formed slug is required")
	}
	return nil
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.store.Activities().List(r.Context())
	if err != nil {
		writeError(w, r, "activity", err)
		return
	}
	respond(w, http.StatusOK, activities)
}

func (h *Handler) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.store.Activities().FindBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, "activity", err)
		return
	}
	respond(w, http.StatusOK, a)
}

func (h *Handler) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var a api.Activity
	if !decodeBody(w, r, "activity", &a) {
		return
	}
	if apiErr := validateActivity(&a); apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	if err := h.store.Activities().Create(r.Context(), &a); err != nil {
		writeError(w, r, "activity", err)
		return
	}
	respond(w, http.StatusOK, &a)
}

func (h *Handler) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	var a api.Activity
	if !decodeBody(w, r, "activity", &a) {
		return
	}
	if apiErr := validateActivity(&a); apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	if err := h.store.Activities().Update(r.Context(), r.PathValue("slug"), &a); err != nil {
		writeError(w, r, "activity", err)
		return
	}
	respond(w, http.StatusOK, &a)
}

func (h *Handler) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Activities().Delete(r.Context(), r.PathValue("slug")); err != nil {
		writeError(w, r, "activity", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
