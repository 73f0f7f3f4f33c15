// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/netshift/netshift/internal/domain/agegate"
)

// AgeGateHandler serves curated age-gate joins over ranking snapshots.
type AgeGateHandler struct {
	deps Dependencies
}

// NewAgeGateHandler creates a new age-gate handler.
func NewAgeGateHandler(deps Dependencies) *AgeGateHandler {
	return &AgeGateHandler{deps: deps}
}

type classifiedResponse struct {
	envelope
	Country string                   `json:"country"`
	Date    string                   `json:"date"`
	Counts  agegate.Counts           `json:"counts"`
	Domains []agegate.Classification `json:"domains"`
}

// HandleClassified handles GET /api/top-domains/age-gated requests: the
// top-N snapshot annotated with curated verdicts.
func (h *AgeGateHandler) HandleClassified(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	country := queryCountry(r, h.deps)
	date, domains, counts, err := h.deps.ClassifyTopDomains(r.Context(), country, r.URL.Query().Get("date"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, classifiedResponse{
		envelope: newEnvelope(true),
		Country:  country,
		Date:     date,
		Counts:   counts,
		Domains:  domains,
	})
}

type statusResponse struct {
	envelope
	Country string                    `json:"country"`
	Date    string                    `json:"date"`
	Curated []agegate.CuratedPresence `json:"curated"`
}

// HandleStatus handles GET /api/age-gate/status requests: every curated
// domain with its verdict and snapshot standing.
func (h *AgeGateHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	country := queryCountry(r, h.deps)
	date, curated, err := h.deps.AgeGateStatus(r.Context(), country, r.URL.Query().Get("date"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		envelope: newEnvelope(true),
		Country:  country,
		Date:     date,
		Curated:  curated,
	})
}

type agegateTimeseriesResponse struct {
	envelope
	Country string               `json:"country"`
	Days    []agegate.DailyCount `json:"days"`
}

// HandleTimeseries handles GET /api/age-gate/timeseries requests: daily
// verdict tallies over [since, until].
func (h *AgeGateHandler) HandleTimeseries(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	q := r.URL.Query()
	country := queryCountry(r, h.deps)
	days, err := h.deps.AgeGateTimeseries(r.Context(), country, q.Get("since"), q.Get("until"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agegateTimeseriesResponse{
		envelope: newEnvelope(true),
		Country:  country,
		Days:     days,
	})
}
