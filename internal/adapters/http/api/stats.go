// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	service "github.com/netshift/netshift/internal/app"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps Dependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

type statsResponse struct {
	envelope
	Stats service.Stats `json:"stats"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := h.deps.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{envelope: newEnvelope(true), Stats: stats})
}
