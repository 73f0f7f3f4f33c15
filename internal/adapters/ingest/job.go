// Package ingest fetches upstream measurement data and normalizes it into
// store records.
package ingest

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind tags an ingestion job with the upstream fetch it performs. Each kind
// has exactly one normalizer; selection is by tag, not dynamic dispatch.
type Kind string

const (
	// KindHTTP fetches the normalized HTTP request index.
	KindHTTP Kind = "http"
	// KindL3 fetches mitigated layer-3 attack bytes.
	KindL3 Kind = "l3"
	// KindBots fetches the bot traffic share.
	KindBots Kind = "bots"
	// KindTop fetches a top-domains ranking snapshot.
	KindTop Kind = "top"
	// KindOONI fetches circumvention-tool reachability rates.
	KindOONI Kind = "ooni"
)

// Kinds returns all job kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindHTTP, KindL3, KindBots, KindTop, KindOONI}
}

// ParseKind validates a kind name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

func (k Kind) String() string { return string(k) }

// Job is one unit of ingestion work. Zero-valued optional fields fall back
// to runner defaults.
type Job struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Country string `json:"country"`

	// Days sizes the lookback for timeseries kinds.
	Days int `json:"days,omitempty"`

	// Date pins a top-domains snapshot to a day; empty means latest.
	Date string `json:"date,omitempty"`

	// Direction selects target or origin for layer-3 fetches.
	Direction string `json:"direction,omitempty"`

	// Limit is the snapshot depth for top-domains fetches.
	Limit int `json:"limit,omitempty"`
}

// NewJob creates a job with a fresh id.
func NewJob(kind Kind, country string) Job {
	return Job{ID: uuid.NewString(), Kind: kind, Country: country}
}
