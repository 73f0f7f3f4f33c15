// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/netshift/netshift/internal/domain/window"
)

// WindowStatsHandler serves before/after window statistics.
type WindowStatsHandler struct {
	deps Dependencies
}

// NewWindowStatsHandler creates a new window stats handler.
func NewWindowStatsHandler(deps Dependencies) *WindowStatsHandler {
	return &WindowStatsHandler{deps: deps}
}

type windowStatsResponse struct {
	envelope
	Country string        `json:"country"`
	Result  window.Result `json:"result"`
}

// HandleGet handles GET /api/window-stats requests.
//
// Parameters: metric (required), country (defaults to the event's country),
// event (slug, defaults to the configured event), days, controls (comma
// separated, "none" disables the control comparison).
func (h *WindowStatsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	metric, err := queryMetric(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	days, err := queryInt(r, "days", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.deps.WindowStats(r.Context(),
		r.URL.Query().Get("country"),
		metric,
		r.URL.Query().Get("event"),
		days,
		queryControls(r),
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, windowStatsResponse{
		envelope: newEnvelope(true),
		Country:  result.Country,
		Result:   result,
	})
}
