package handlers

import (
	"net/http"

	"coderr-service/internal/api/middleware"
	"coderr-service/internal/models"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

type ProfileHandler struct {
	svc    *service.ProfileService
	logger zerolog.Logger
}

func NewProfileHandler(svc *service.ProfileService, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

func (h *ProfileHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	profile, err := h.svc.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req service.UpdateProfileInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	profile, err := h.svc.Update(r.Context(), middleware.ActorFrom(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ListByRole serves one profile listing per role.
func (h *ProfileHandler) ListByRole(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profiles, err := h.svc.List(r.Context(), role)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, profiles)
	}
}
