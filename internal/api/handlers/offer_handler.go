package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"coderr-service/internal/api/middleware"
	"coderr-service/internal/models"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

type OfferHandler struct {
	svc    *service.OfferService
	logger zerolog.Logger
}

func NewOfferHandler(svc *service.OfferService, logger zerolog.Logger) *OfferHandler {
	return &OfferHandler{svc: svc, logger: logger}
}

func (h *OfferHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.ParseQuery(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.svc.List(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	page := models.Page[models.OfferSummary]{
		Count:   list.Count,
		Results: make([]models.OfferSummary, 0, len(list.Offers)),
	}
	for i := range list.Offers {
		page.Results = append(page.Results, list.Offers[i].Summary())
	}
	if list.HasNext() {
		next := pageURL(r, list.Page+1)
		page.Next = &next
	}
	if list.HasPrevious() {
		prev := pageURL(r, list.Page-1)
		page.Previous = &prev
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *OfferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOfferInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	offer, err := h.svc.Create(r.Context(), middleware.ActorFrom(r.Context()), req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/offers/"+strconv.FormatInt(offer.ID, 10)+"/")
	writeJSON(w, http.StatusCreated, offer.View())
}

func (h *OfferHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	offer, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, offer.View())
}

func (h *OfferHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req service.UpdateOfferInput
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	offer, err := h.svc.Update(r.Context(), middleware.ActorFrom(r.Context()), id, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, offer.View())
}

func (h *OfferHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *OfferHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.svc.GetDetail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// pageURL is the absolute URL of the current request with page replaced.
// Page 1 drops the parameter.
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	q := r.URL.Query()
	if page <= 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: q.Encode(),
	}
	return u.String()
}
