// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/netshift/netshift/internal/adapters/ingest"
	"github.com/netshift/netshift/internal/adapters/repository"
	service "github.com/netshift/netshift/internal/app"
	"github.com/netshift/netshift/internal/domain/agegate"
	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/internal/domain/rankdiff"
	"github.com/netshift/netshift/internal/domain/window"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Request defaults.
	DefaultCountry() string
	DefaultWindowDays() int

	// Event registry.
	Events(ctx context.Context) []model.Event
	Event(ctx context.Context, slug string) (model.Event, error)

	// Time series reads.
	Timeseries(ctx context.Context, country string, metric model.Metric, from, to time.Time) ([]model.MetricPoint, error)
	Attacks(ctx context.Context, country string, from, to time.Time) (service.AttackSeries, error)

	// Analytics.
	WindowStats(ctx context.Context, country string, metric model.Metric, slug string, days int, controls []string) (window.Result, error)
	RankChanges(ctx context.Context, country, dateA, dateB string, limit int) ([]rankdiff.Change, error)
	TopDomains(ctx context.Context, country, date, category string, limit int) (string, []model.DomainRankEntry, error)
	ClassifyTopDomains(ctx context.Context, country, date string, limit int) (string, []agegate.Classification, agegate.Counts, error)
	AgeGateStatus(ctx context.Context, country, date string, limit int) (string, []agegate.CuratedPresence, error)
	AgeGateTimeseries(ctx context.Context, country, since, until string, limit int) ([]agegate.DailyCount, error)

	// Ingestion and introspection.
	EnqueueIngest(ctx context.Context, job ingest.Job) bool
	GetStats(ctx context.Context) (service.Stats, error)
	StoreCounts(ctx context.Context) (repository.Counts, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	timeseriesHandler *TimeseriesHandler
	attacksHandler    *AttacksHandler
	windowHandler     *WindowStatsHandler
	rankHandler       *RankChangesHandler
	topHandler        *TopDomainsHandler
	agegateHandler    *AgeGateHandler
	ingestHandler     *IngestHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(deps),
		statsHandler:      NewStatsHandler(deps),
		eventsHandler:     NewEventsHandler(deps),
		timeseriesHandler: NewTimeseriesHandler(deps),
		attacksHandler:    NewAttacksHandler(deps),
		windowHandler:     NewWindowStatsHandler(deps),
		rankHandler:       NewRankChangesHandler(deps),
		topHandler:        NewTopDomainsHandler(deps),
		agegateHandler:    NewAgeGateHandler(deps),
		ingestHandler:     NewIngestHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/events", MetricsMiddleware(s.eventsHandler.HandleList, "events"))
	mux.HandleFunc("/api/event", MetricsMiddleware(s.eventsHandler.HandleGet, "event"))
	mux.HandleFunc("/api/timeseries", MetricsMiddleware(s.timeseriesHandler.HandleGet, "timeseries"))
	mux.HandleFunc("/api/attacks", MetricsMiddleware(s.attacksHandler.HandleGet, "attacks"))
	mux.HandleFunc("/api/window-stats", MetricsMiddleware(s.windowHandler.HandleGet, "window-stats"))
	mux.HandleFunc("/api/rank-changes", MetricsMiddleware(s.rankHandler.HandleGet, "rank-changes"))
	mux.HandleFunc("/api/top-domains", MetricsMiddleware(s.topHandler.HandleGet, "top-domains"))
	mux.HandleFunc("/api/top-domains/age-gated", MetricsMiddleware(s.agegateHandler.HandleClassified, "top-domains-age-gated"))
	mux.HandleFunc("/api/age-gate/status", MetricsMiddleware(s.agegateHandler.HandleStatus, "age-gate-status"))
	mux.HandleFunc("/api/age-gate/timeseries", MetricsMiddleware(s.agegateHandler.HandleTimeseries, "age-gate-timeseries"))
	mux.HandleFunc("/api/ingest", MetricsMiddleware(s.ingestHandler.HandlePost, "ingest"))
}

// envelope carries the fields shared by every JSON response.
type envelope struct {
	OK      bool   `json:"ok"`
	TimeUTC string `json:"time_utc"`
}

func newEnvelope(ok bool) envelope {
	return envelope{OK: ok, TimeUTC: time.Now().UTC().Format(time.RFC3339)}
}

type errorResponse struct {
	envelope
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{envelope: newEnvelope(false), Error: msg})
}

// writeDomainError maps domain sentinel errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrEventNotFound),
		errors.Is(err, rankdiff.ErrNoSnapshot),
		errors.Is(err, agegate.ErrNoSnapshot):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, model.ErrInvalidCountry),
		errors.Is(err, model.ErrUnknownMetric),
		errors.Is(err, model.ErrInvalidWindow),
		errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, ingest.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

// requireMethod writes a 405 and returns false on a method mismatch.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
		return false
	}
	return true
}
