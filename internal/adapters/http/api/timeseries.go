// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/netshift/netshift/internal/domain/model"
)

// TimeseriesHandler serves raw metric points.
type TimeseriesHandler struct {
	deps Dependencies
}

// NewTimeseriesHandler creates a new timeseries handler.
func NewTimeseriesHandler(deps Dependencies) *TimeseriesHandler {
	return &TimeseriesHandler{deps: deps}
}

// pointView is the wire shape of one observation.
type pointView struct {
	TS    time.Time `json:"ts"`
	Value float64   `json:"value"`
}

func toPointViews(points []model.MetricPoint) []pointView {
	out := make([]pointView, 0, len(points))
	for _, p := range points {
		out = append(out, pointView{TS: p.TS, Value: p.Value})
	}
	return out
}

type timeseriesResponse struct {
	envelope
	Country string      `json:"country"`
	Metric  string      `json:"metric"`
	From    time.Time   `json:"from"`
	To      time.Time   `json:"to"`
	Points  []pointView `json:"points"`
}

// HandleGet handles GET /api/timeseries requests.
func (h *TimeseriesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	metric, err := queryMetric(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	from, to, err := queryRange(r, h.deps.DefaultWindowDays())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	country := queryCountry(r, h.deps)
	points, err := h.deps.Timeseries(r.Context(), country, metric, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, timeseriesResponse{
		envelope: newEnvelope(true),
		Country:  country,
		Metric:   metric.String(),
		From:     from,
		To:       to,
		Points:   toPointViews(points),
	})
}
