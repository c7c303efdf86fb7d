package handler

import (
	"net/http"

	"github.com/hszk-dev/ytfeed/internal/usecase"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Channels int    `json:"channels"`
	Cached   int    `json:"cached"`
}

// HealthHandler reports liveness. It does not touch the upstream feed.
type HealthHandler struct {
	services []usecase.SnapshotService
}

func NewHealthHandler(services []usecase.SnapshotService) *HealthHandler {
	return &HealthHandler{services: services}
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	cached := 0
	for _, svc := range h.services {
		if svc.Peek() != nil {
			cached++
		}
	}

	JSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Channels: len(h.services),
		Cached:   cached,
	})
}
