// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"
)

// AttacksHandler serves layer-3 attack series in both directions.
type AttacksHandler struct {
	deps Dependencies
}

// NewAttacksHandler creates a new attacks handler.
func NewAttacksHandler(deps Dependencies) *AttacksHandler {
	return &AttacksHandler{deps: deps}
}

type attacksResponse struct {
	envelope
	Country string      `json:"country"`
	From    time.Time   `json:"from"`
	To      time.Time   `json:"to"`
	Target  []pointView `json:"target"`
	Origin  []pointView `json:"origin"`
}

// HandleGet handles GET /api/attacks requests.
func (h *AttacksHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	from, to, err := queryRange(r, h.deps.DefaultWindowDays())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	country := queryCountry(r, h.deps)
	series, err := h.deps.Attacks(r.Context(), country, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attacksResponse{
		envelope: newEnvelope(true),
		Country:  country,
		From:     from,
		To:       to,
		Target:   toPointViews(series.Target),
		Origin:   toPointViews(series.Origin),
	})
}
