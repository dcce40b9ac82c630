package handlers

import (
	"context"
	"net/http"
	"time"

	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

type StatsHandler struct {
	svc    *service.StatsService
	logger zerolog.Logger
}

func NewStatsHandler(svc *service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger}
}

func (h *StatsHandler) BaseInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.BaseInfo(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers liveness probes by pinging the database.
func Health(db Pinger, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("health check failed")
			writeError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable", nil)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
