package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/gatherings/internal/domain/events"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
	BaseURL string
}

func NewEventsHandler(service *events.Service, env string, baseURL string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env, BaseURL: baseURL}
}

// List returns every event visible to the caller, optionally narrowed by
// ?organizer=<username> and ?upcoming=true.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := events.ParseFilters(r.URL.Query(), time.Now())
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	items, err := h.Service.List(r.Context(), identity(r), filters)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEvents(items))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input events.Input
	if err := decodeJSON(r, &input, false); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Create(r.Context(), identity(r), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	w.Header().Set("Location", h.eventURL(event.ID))
	writeJSON(w, http.StatusCreated, toEvent(event))
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.Service.Get(r.Context(), identity(r), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEvent(event))
}

// Replace handles PUT: every writable field must be supplied.
func (h *EventsHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var input events.Input
	if err := decodeJSON(r, &input, false); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Replace(r.Context(), identity(r), pathParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEvent(event))
}

func (h *EventsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	var patch events.Patch
	if err := decodeJSON(r, &patch, true); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Patch(r.Context(), identity(r), pathParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toEvent(event))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), identity(r), pathParam(r, "id")); err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventsHandler) eventURL(id string) string {
	return strings.TrimRight(h.BaseURL, "/") + "/api/v1/events/" + id
}
