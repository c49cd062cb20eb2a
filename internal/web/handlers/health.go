package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/good-yellow-bee/toolme/internal/log"
)

type healthResponse struct {
	Status   string `json:"status"`
	Sessions string `json:"sessions"`
}

// Health reports liveness and whether the session store answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Sessions: "ok"}
	status := http.StatusOK
	if h.sessions != nil {
		if err := h.sessions.Ping(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("session store ping failed")
			resp.Status, resp.Sessions = "degraded", "error"
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("write health response")
	}
}
