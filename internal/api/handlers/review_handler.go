package handlers

import (
	"net/http"

	"coderr-service/internal/api/middleware"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

type ReviewHandler struct {
	svc    *service.ReviewService
	logger zerolog.Logger
}

func NewReviewHandler(svc *service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{svc: svc, logger: logger}
}

func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := h.svc.ParseQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	reviews, err := h.svc.List(r.Context(), middleware.ActorFrom(r.Context()), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateReviewInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	review, err := h.svc.Create(r.Context(), middleware.ActorFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, review)
}

func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	review, err := h.svc.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req service.UpdateReviewInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	review, err := h.svc.Update(r.Context(), middleware.ActorFrom(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.ActorFrom(r.Context()), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
