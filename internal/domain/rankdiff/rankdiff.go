// Package rankdiff compares two top-N ranking snapshots and surfaces the
// largest movements.
package rankdiff

import (
	"context"
	"fmt"
	"sort"

	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/metrics"
)

// Status classifies a domain's movement between two snapshots.
type Status string

const (
	// StatusMoved means the domain appears in both snapshots.
	StatusMoved Status = "moved"
	// StatusNewEntrant means the domain appears only in the later snapshot.
	StatusNewEntrant Status = "new_entrant"
	// StatusDroppedOut means the domain appears only in the earlier snapshot.
	StatusDroppedOut Status = "dropped_out"
)

// SnapshotSource is the read contract the comparator needs from the store.
// Entries are ordered by rank ascending and truncated to limit; an empty
// result means no snapshot exists for that date.
type SnapshotSource interface {
	QueryRankSnapshot(ctx context.Context, country, date string, limit int) ([]model.DomainRankEntry, error)
}

// Change reports one domain's movement. Delta is rankA - rankB, so positive
// means the domain improved (moved toward rank 1); it is nil for entrants
// and drop-outs.
type Change struct {
	Domain string `json:"domain"`
	Status Status `json:"status"`
	RankA  *int   `json:"rank_a,omitempty"`
	RankB  *int   `json:"rank_b,omitempty"`
	Delta  *int   `json:"delta,omitempty"`
}

// Comparator computes rank changes between snapshot dates. Stateless; safe
// for concurrent use.
type Comparator struct {
	source SnapshotSource
}

// NewComparator creates a comparator reading from source.
func NewComparator(source SnapshotSource) *Comparator {
	return &Comparator{source: source}
}

// Changes compares the snapshots at dateA (earlier) and dateB (later),
// truncated to limit. The ordering is deterministic: movements by absolute
// delta descending, ties by domain ascending, then entrants and drop-outs
// by domain ascending.
func (c *Comparator) Changes(ctx context.Context, country, dateA, dateB string, limit int) ([]Change, error) {
	cc, err := model.NormalizeCountry(country)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit %d", model.ErrInvalidWindow, limit)
	}
	for _, d := range []string{dateA, dateB} {
		if _, err := model.ParseDay(d); err != nil {
			return nil, err
		}
	}

	snapA, err := c.source.QueryRankSnapshot(ctx, cc, dateA, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s: %w", dateA, err)
	}
	if len(snapA) == 0 {
		return nil, fmt.Errorf("%w: no ranking snapshot for %s on %s", ErrNoSnapshot, cc, dateA)
	}
	snapB, err := c.source.QueryRankSnapshot(ctx, cc, dateB, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshot %s: %w", dateB, err)
	}
	if len(snapB) == 0 {
		return nil, fmt.Errorf("%w: no ranking snapshot for %s on %s", ErrNoSnapshot, cc, dateB)
	}

	ranksA := byDomain(snapA)
	ranksB := byDomain(snapB)

	changes := make([]Change, 0, len(ranksA)+len(ranksB))
	for domain, ra := range ranksA {
		rankA := ra
		if rb, ok := ranksB[domain]; ok {
			rankB := rb
			delta := rankA - rankB
			changes = append(changes, Change{
				Domain: domain,
				Status: StatusMoved,
				RankA:  &rankA,
				RankB:  &rankB,
				Delta:  &delta,
			})
		} else {
			changes = append(changes, Change{
				Domain: domain,
				Status: StatusDroppedOut,
				RankA:  &rankA,
			})
		}
	}
	for domain, rb := range ranksB {
		if _, ok := ranksA[domain]; ok {
			continue
		}
		rankB := rb
		changes = append(changes, Change{
			Domain: domain,
			Status: StatusNewEntrant,
			RankB:  &rankB,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		// Movements with a delta sort before entrants/drop-outs.
		switch {
		case a.Delta != nil && b.Delta == nil:
			return true
		case a.Delta == nil && b.Delta != nil:
			return false
		case a.Delta != nil && b.Delta != nil:
			da, db := abs(*a.Delta), abs(*b.Delta)
			if da != db {
				return da > db
			}
		}
		return a.Domain < b.Domain
	})

	metrics.RecordRankComparison()
	return changes, nil
}

func byDomain(entries []model.DomainRankEntry) map[string]int {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		m[e.Domain] = e.Rank
	}
	return m
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
