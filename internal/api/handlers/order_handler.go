package handlers

import (
	"net/http"

	"coderr-service/internal/api/middleware"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

type OrderHandler struct {
	svc    *service.OrderService
	logger zerolog.Logger
}

func NewOrderHandler(svc *service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, logger: logger}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.List(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	order, err := h.svc.Create(r.Context(), middleware.ActorFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.svc.Get(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req service.UpdateOrderInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), middleware.ActorFrom(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Replace rejects PUT; orders only change through PATCH.
func (h *OrderHandler) Replace(w http.ResponseWriter, r *http.Request) {
	writeServiceError(w, r, h.logger, service.MethodNotAllowed(service.FullUpdateRejected))
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *OrderHandler) CountInProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.svc.CountInProgress(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"order_count": n})
}

func (h *OrderHandler) CountCompleted(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	n, err := h.svc.CountCompleted(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"completed_order_count": n})
}
