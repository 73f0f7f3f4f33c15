// Package agegate joins curated age-verification knowledge against
// top-domain ranking snapshots.
package agegate

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/curated.yaml
var curatedYAML []byte

// Status is the curated age-gate verdict for a domain.
type Status string

const (
	// StatusGated means age verification is known to be enforced.
	StatusGated Status = "gated"
	// StatusNotGated means the domain is confirmed not gated.
	StatusNotGated Status = "not_gated"
	// StatusUnknown means no evidence either way. Domains absent from the
	// curated list are always unknown, never not_gated.
	StatusUnknown Status = "unknown"
)

// Record is one curated entry.
type Record struct {
	Domain string `yaml:"domain" json:"domain"`
	Status Status `yaml:"status" json:"status"`
	Note   string `yaml:"note,omitempty" json:"note,omitempty"`
}

// List is an immutable lookup over curated records, keyed by normalized
// domain. Build it once at startup.
type List struct {
	byDomain map[string]Record
	order    []string
}

// LoadCurated parses the embedded curated list.
func LoadCurated() (*List, error) {
	var records []Record
	if err := yaml.Unmarshal(curatedYAML, &records); err != nil {
		return nil, fmt.Errorf("parse curated list: %w", err)
	}
	return NewList(records)
}

// NewList builds a lookup from records, validating statuses.
func NewList(records []Record) (*List, error) {
	l := &List{byDomain: make(map[string]Record, len(records))}
	for _, r := range records {
		switch r.Status {
		case StatusGated, StatusNotGated, StatusUnknown:
		default:
			return nil, fmt.Errorf("curated entry %q: unknown status %q", r.Domain, r.Status)
		}
		key := NormalizeDomain(r.Domain)
		if key == "" {
			return nil, fmt.Errorf("curated entry with empty domain")
		}
		if _, dup := l.byDomain[key]; dup {
			return nil, fmt.Errorf("curated entry %q: duplicate domain", r.Domain)
		}
		l.byDomain[key] = r
		l.order = append(l.order, key)
	}
	sort.Strings(l.order)
	return l, nil
}

// Status looks up a domain after normalization. Unlisted domains report
// StatusUnknown with no note.
func (l *List) Status(domain string) Record {
	if r, ok := l.byDomain[NormalizeDomain(domain)]; ok {
		return r
	}
	return Record{Domain: NormalizeDomain(domain), Status: StatusUnknown}
}

// Records returns all curated entries ordered by normalized domain.
func (l *List) Records() []Record {
	out := make([]Record, 0, len(l.order))
	for _, key := range l.order {
		out = append(out, l.byDomain[key])
	}
	return out
}

// Len returns the number of curated entries.
func (l *List) Len() int { return len(l.byDomain) }
