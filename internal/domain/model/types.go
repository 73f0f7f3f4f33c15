// Package model contains the core measurement types shared across the service.
package model

import (
	"fmt"
	"strings"
	"time"
)

// DayFormat is the layout of observation dates on ranking snapshots.
const DayFormat = "2006-01-02"

// MetricPoint is one observation of a metric for a country.
// Uniquely identified by (Country, Metric, TS); re-ingesting the same key
// replaces the value.
type MetricPoint struct {
	Country string    `json:"country"`
	Metric  Metric    `json:"metric"`
	TS      time.Time `json:"ts"`
	Value   float64   `json:"value"`
}

// DomainRankEntry is one row of a top-N ranking snapshot. Ranks for the same
// (Country, Date) are unique and contiguous starting at 1.
type DomainRankEntry struct {
	Country  string `json:"country"`
	Date     string `json:"date"`
	Rank     int    `json:"rank"`
	Domain   string `json:"domain"`
	Category string `json:"category,omitempty"`
}

// Event is a fixed calendar event used as the reference instant for
// before/after comparisons. Static data supplied by configuration.
type Event struct {
	Slug    string    `json:"slug"`
	Name    string    `json:"name"`
	Country string    `json:"country"`
	Instant time.Time `json:"instant"`
}

// WindowSpec derives the pre and post comparison windows around an event.
// Windows are half-open and never overlap.
type WindowSpec struct {
	Event      Event
	WindowDays int
}

// NewWindowSpec validates the window size and binds it to an event.
func NewWindowSpec(ev Event, windowDays int) (WindowSpec, error) {
	if windowDays <= 0 {
		return WindowSpec{}, fmt.Errorf("%w: window days %d", ErrInvalidWindow, windowDays)
	}
	return WindowSpec{Event: ev, WindowDays: windowDays}, nil
}

// Pre returns the pre-window [instant-d, instant).
func (w WindowSpec) Pre() (from, to time.Time) {
	return w.Event.Instant.AddDate(0, 0, -w.WindowDays), w.Event.Instant
}

// Post returns the post-window [instant, instant+d).
func (w WindowSpec) Post() (from, to time.Time) {
	return w.Event.Instant, w.Event.Instant.AddDate(0, 0, w.WindowDays)
}

// NormalizeCountry validates and uppercases an ISO alpha-2 country code.
func NormalizeCountry(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountry, code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCountry, code)
		}
	}
	return c, nil
}

// ParseDay parses a YYYY-MM-DD observation date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}
