package transport

import (
	"net/http"

	"github.com/osuosl/timesync/pkg/api"
)

func validateProject(p *api.Project) *api.Error {
	if p.Name == "" {
		return api.BadObject("project", "name is required")
	}
	if !api.ValidSlugs(p.Slugs) {
		return api.BadObject("project", "at least one well-formed slug is required")
	}
	return nil
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.Projects().List(r.Context())
	if err != nil {
		writeError(w, r, "project", err)
		return
	}
	respond(w, http.StatusOK, projects)
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Projects().FindBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, r, "project", err)
		return
	}
	respond(w, http.StatusOK, p)
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p api.Project
	if !decodeBody(w, r, "project", &p) {
		return
	}
	if apiErr := validateProject(&p); apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	if err := h.store.Projects().Create(r.Context(), &p); err != nil {
		writeError(w, r, "project", err)
		return
	}
	respond(w, http.StatusOK, &p)
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var p api.Project
	if !decodeBody(w, r, "project", &p) {
		return
	}
	if apiErr := validateProject(&p); apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	if err := h.store.Projects().Update(r.Context(), r.PathValue("slug"), &p); err != nil {
		writeError(w, r, "project", err)
		return
	}
	respond(w, http.StatusOK, &p)
}

func (h *Handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Projects().Delete(r.Context(), r.PathValue("slug")); err != nil {
		writeError(w, r, "project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
