package model

import (
	"fmt"
	"sort"
)

// Registry resolves event slugs against the static registry loaded at
// startup. It is immutable after construction.
type Registry struct {
	events map[string]Event
	order  []string
}

// NewRegistry builds a registry from configured events.
func NewRegistry(events []Event) *Registry {
	r := &Registry{events: make(map[string]Event, len(events))}
	for _, ev := range events {
		if _, dup := r.events[ev.Slug]; dup {
			continue
		}
		r.events[ev.Slug] = ev
		r.order = append(r.order, ev.Slug)
	}
	sort.Strings(r.order)
	return r
}

// Resolve returns the event for slug or ErrEventNotFound.
func (r *Registry) Resolve(slug string) (Event, error) {
	ev, ok := r.events[slug]
	if !ok {
		return Event{}, fmt.Errorf("%w: %q", ErrEventNotFound, slug)
	}
	return ev, nil
}

// All returns every registered event ordered by slug.
func (r *Registry) All() []Event {
	out := make([]Event, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.events[slug])
	}
	return out
}
