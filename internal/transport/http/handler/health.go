package handler

import (
	"net/http"

	"github.com/fiscus-api/internal/domain"
	"github.com/go-chi/chi/v5"
)

// HealthHandler handles liveness endpoints.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeData(w, http.StatusOK, MessageData{Message: "pong"})
		return
	}
	writeError(w, http.StatusBadRequest, domain.KindMalformed, "unknown action")
}
