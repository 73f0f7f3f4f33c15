// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/netshift/netshift/internal/adapters/ingest"
)

// IngestHandler accepts on-demand ingestion requests.
type IngestHandler struct {
	deps Dependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps Dependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// ingestRequest mirrors the POST /api/ingest body.
type ingestRequest struct {
	Kind      string `json:"kind"`
	Country   string `json:"country"`
	Days      int    `json:"days,omitempty"`
	Date      string `json:"date,omitempty"`
	Direction string `json:"direction,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (req ingestRequest) validate() error {
	if strings.TrimSpace(req.Kind) == "" {
		return fmt.Errorf("%w: missing kind", ErrBadRequest)
	}
	if strings.TrimSpace(req.Country) == "" {
		return fmt.Errorf("%w: missing country", ErrBadRequest)
	}
	return nil
}

type ingestResponse struct {
	envelope
	JobID string `json:"job_id"`
	Kind  string `json:"kind"`
}

// HandlePost handles POST /api/ingest requests. The job is queued for
// asynchronous execution; a full queue yields 429.
func (h *IngestHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: invalid JSON body", ErrBadRequest))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	kind, err := ingest.ParseKind(req.Kind)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	job := ingest.NewJob(kind, req.Country)
	job.Days = req.Days
	job.Date = req.Date
	job.Direction = req.Direction
	job.Limit = req.Limit

	if !h.deps.EnqueueIngest(r.Context(), job) {
		writeError(w, http.StatusTooManyRequests, ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{
		envelope: newEnvelope(true),
		JobID:    job.ID,
		Kind:     kind.String(),
	})
}
