// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"time"

	"github.com/netshift/netshift/internal/domain/model"
)

// EventsHandler serves the event registry.
type EventsHandler struct {
	deps Dependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventView is the wire shape of a registry entry.
type eventView struct {
	Slug    string    `json:"slug"`
	Name    string    `json:"name"`
	Country string    `json:"country"`
	Date    string    `json:"date"`
	Instant time.Time `json:"instant"`
}

func toEventView(ev model.Event) eventView {
	return eventView{
		Slug:    ev.Slug,
		Name:    ev.Name,
		Country: ev.Country,
		Date:    ev.Instant.Format(model.DayFormat),
		Instant: ev.Instant,
	}
}

type eventsResponse struct {
	envelope
	Events []eventView `json:"events"`
}

// HandleList handles GET /api/events requests.
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	events := h.deps.Events(r.Context())
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, toEventView(ev))
	}
	writeJSON(w, http.StatusOK, eventsResponse{envelope: newEnvelope(true), Events: views})
}

type eventResponse struct {
	envelope
	Event eventView `json:"event"`
}

// HandleGet handles GET /api/event?slug= requests. An unknown slug is a hard
// 404; there is no silent fallback to the default event.
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	ev, err := h.deps.Event(r.Context(), r.URL.Query().Get("slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{envelope: newEnvelope(true), Event: toEventView(ev)})
}
