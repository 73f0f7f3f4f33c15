// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/netshift/netshift/pkg/metrics"
)

// HealthHandler handles health check and metrics scrape requests.
type HealthHandler struct {
	deps Dependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps Dependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleMetrics handles GET /healthz requests by serving the Prometheus
// registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

type healthResponse struct {
	envelope
	Status       string `json:"status"`
	MetricPoints int64  `json:"metric_points"`
	RankRows     int64  `json:"rank_rows"`
}

// HandleHealth handles GET /health requests with a JSON liveness summary.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	counts, err := h.deps.StoreCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		envelope:     newEnvelope(true),
		Status:       "up",
		MetricPoints: counts.MetricPoints,
		RankRows:     counts.RankRows,
	})
}
