// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/netshift/netshift/internal/domain/model"
)

// TopDomainsHandler serves ranking snapshots.
type TopDomainsHandler struct {
	deps Dependencies
}

// NewTopDomainsHandler creates a new top domains handler.
func NewTopDomainsHandler(deps Dependencies) *TopDomainsHandler {
	return &TopDomainsHandler{deps: deps}
}

// rankView is the wire shape of one ranking row.
type rankView struct {
	Rank     int    `json:"rank"`
	Domain   string `json:"domain"`
	Category string `json:"category,omitempty"`
}

func toRankViews(entries []model.DomainRankEntry) []rankView {
	out := make([]rankView, 0, len(entries))
	for _, e := range entries {
		out = append(out, rankView{Rank: e.Rank, Domain: e.Domain, Category: e.Category})
	}
	return out
}

type topDomainsResponse struct {
	envelope
	Country string     `json:"country"`
	Date    string     `json:"date"`
	Domains []rankView `json:"domains"`
}

// HandleGet handles GET /api/top-domains requests. An empty ?date resolves
// to the latest stored snapshot.
func (h *TopDomainsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
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
	date, entries, err := h.deps.TopDomains(r.Context(), country, q.Get("date"), q.Get("category"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topDomainsResponse{
		envelope: newEnvelope(true),
		Country:  country,
		Date:     date,
		Domains:  toRankViews(entries),
	})
}
