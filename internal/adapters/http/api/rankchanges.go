// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"

	"github.com/netshift/netshift/internal/domain/rankdiff"
)

// RankChangesHandler serves snapshot-to-snapshot ranking movements.
type RankChangesHandler struct {
	deps Dependencies
}

// NewRankChangesHandler creates a new rank changes handler.
func NewRankChangesHandler(deps Dependencies) *RankChangesHandler {
	return &RankChangesHandler{deps: deps}
}

type rankChangesResponse struct {
	envelope
	Country string            `json:"country"`
	DateA   string            `json:"date_a"`
	DateB   string            `json:"date_b"`
	Changes []rankdiff.Change `json:"changes"`
}

// HandleGet handles GET /api/rank-changes requests. Both ?date_a and
// ?date_b are required; ?limit caps the snapshot depth.
func (h *RankChangesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	dateA, dateB := q.Get("date_a"), q.Get("date_b")
	if dateA == "" || dateB == "" {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("%w: date_a and date_b are required", ErrBadRequest))
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	country := queryCountry(r, h.deps)
	changes, err := h.deps.RankChanges(r.Context(), country, dateA, dateB, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankChangesResponse{
		envelope: newEnvelope(true),
		Country:  country,
		DateA:    dateA,
		DateB:    dateB,
		Changes:  changes,
	})
}
