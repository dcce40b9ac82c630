package handlers

import (
	"net/http"

	"coderr-service/internal/api/middleware"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	svc    *service.AuthService
	logger zerolog.Logger
}

func NewAuthHandler(svc *service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	session, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	session, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), middleware.ActorFrom(r.Context())); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
