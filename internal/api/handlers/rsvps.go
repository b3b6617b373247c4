package handlers

import (
	"net/http"

	"github.com/Togather-Foundation/gatherings/internal/domain/rsvps"
)

type RSVPsHandler struct {
	Service *rsvps.Service
	Env     string
}

func NewRSVPsHandler(service *rsvps.Service, env string) *RSVPsHandler {
	return &RSVPsHandler{Service: service, Env: env}
}

func (h *RSVPsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toRSVPs(items))
}

// Create accepts an empty body; the status then defaults to Going.
func (h *RSVPsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input rsvps.Input
	if err := decodeJSON(r, &input, true); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	rsvp, err := h.Service.Create(r.Context(), identity(r), pathParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, toRSVP(rsvp))
}

func (h *RSVPsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rsvp, err := h.Service.Get(r.Context(), identity(r), pathParam(r, "id"), pathParam(r, "rsvp_id"))
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toRSVP(rsvp))
}

// Update serves both PATCH and PUT; status is the only writable field.
func (h *RSVPsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input rsvps.Input
	if err := decodeJSON(r, &input, true); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	rsvp, err := h.Service.Update(r.Context(), identity(r), pathParam(r, "id"), pathParam(r, "rsvp_id"), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toRSVP(rsvp))
}

func (h *RSVPsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), identity(r), pathParam(r, "id"), pathParam(r, "rsvp_id")); err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
