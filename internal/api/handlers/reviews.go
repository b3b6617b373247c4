package handlers

import (
	"net/http"

	"github.com/Togather-Foundation/gatherings/internal/domain/reviews"
)

type ReviewsHandler struct {
	Service *reviews.Service
	Env     string
}

func NewReviewsHandler(service *reviews.Service, env string) *ReviewsHandler {
	return &ReviewsHandler{Service: service, Env: env}
}

func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toReviews(items))
}

func (h *ReviewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input reviews.Input
	if err := decodeJSON(r, &input, false); err != nil {
		writeError(w, r, err, h.Env)
		return
	}

	review, err := h.Service.Create(r.Context(), identity(r), pathParam(r, "id"), input)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusCreated, toReview(review))
}
