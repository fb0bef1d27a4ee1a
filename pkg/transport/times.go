package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/storage"
)

// parseTimeFilter extracts the listing filters from the query string.
func parseTimeFilter(r *http.Request) (storage.TimeFilter, *api.Error) {
	q := r.URL.Query()
	f := storage.TimeFilter{
		User:     q.Get("user"),
		Project:  q.Get("project"),
		Activity: q.Get("activity"),
	}

	if v := q.Get("start"); v != "" {
		t, err := api.ParseDate(v)
		if err != nil {
			return f, api.BadQueryValue("start", v)
		}
		f.Start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := api.ParseDate(v)
		if err != nil {
			return f, api.BadQueryValue("end", v)
		}
		f.End = t
	}

	return f, nil
}

// pathID parses the {id} path segment. A non-numeric id can never name an
// existing entry, so it reports not-found rather than a malformed value.
func pathID(r *http.Request, kind string) (int64, *api.Error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, api.ObjectNotFound(kind)
	}
	return id, nil
}

// validateTime checks the entry's own fields and that its project and
// activity references resolve.
func (h *Handler) validateTime(r *http.Request, t *api.TimeEntry) (*api.Error, error) {
	if t.Duration <= 0 {
		return api.BadObject("time", "duration must be a positive number of seconds"), nil
	}
	if t.User == "" {
		return api.BadObject("time", "user is required"), nil
	}
	if !api.ValidSlug(t.Project) {
		return api.BadObject("time", "a well-formed project slug is required"), nil
	}
	if _, err := api.ParseDate(t.DateWorked); err != nil {
		return api.BadObject("time", "date_worked must be YYYY-MM-DD"), nil
	}

	if _, err := h.store.Projects().FindBySlug(r.Context(), t.Project); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return api.ObjectNotFound("project"), nil
		}
		return nil, err
	}
	for _, slug := range t.Activities {
		if _, err := h.store.Activities().FindBySlug(r.Context(), slug); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return api.ObjectNotFound("activity"), nil
			}
			return nil, err
		}
	}

	return nil, nil
}

func (h *Handler) handleListTimes(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseTimeFilter(r)
	if apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	times, err := h.store.Times().List(r.Context(), f)
	if err != nil {
		writeError(w, r, "time", err)
		return
	}
	respond(w, http.StatusOK, times)
}

func (h *Handler) handleSummarizeTimes(w http.ResponseWriter, r *http.Request) {
	f, apiErr := parseTimeFilter(r)
	if apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	sums, err := h.store.Times().Summary(r.Context(), f)
	if err != nil {
		writeError(w, r, "time", err)
		return
	}
	respond(w, http.StatusOK, sums)
}

func (h *Handler) handleGetTime(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r, "time")
	if apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	t, err := h.store.Times().Find(r.Context(), id)
	if err != nil {
		writeError(w, r, "time", err)
		return
	}
	respond(w, http.StatusOK, t)
}

func (h *Handler) handleCreateTime(w http.ResponseWriter, r *http.Request) {
	var t api.TimeEntry
	if !decodeBody(w, r, "time", &t) {
		return
	}

	apiErr, err := h.validateTime(r, &t)
	if err != nil {
		writeError(w, r, "time", err)
		return
	}
	if apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	if err := h.store.Times().Create(r.Context(), &t); err != nil {
		writeError(w, r, "time", err)
		return
	}
	respond(w, http.StatusOK, &t)
}

func (h *Handler) handleUpdateTime(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r, "time")
	if apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	var t api.TimeEntry
	if !decodeBody(w, r, "time", &t) {
		return
	}

	apiErr, err := h.validateTime(r, &t)
	if err != nil {
		writeError(w, r, "time", err)
		return
	}
	if apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	if err := h.store.Times().Update(r.Context(), id, &t); err != nil {
		writeError(w, r, "time", err)
		return
	}
	respond(w, http.StatusOK, &t)
}

func (h *Handler) handleDeleteTime(w http.ResponseWriter, r *http.Request) {
	id, apiErr := pathID(r, "time")
	if apiErr != nil {
		api.WriteError(w, apiErr)
		return
	}

	if err := h.store.Times().Delete(r.Context(), id); err != nil {
		writeError(w, r, "time", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
