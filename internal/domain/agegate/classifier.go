package agegate

import (
	"context"
	"fmt"

	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/metrics"
)

// SnapshotSource is the read contract the classifier needs from the store.
type SnapshotSource interface {
	// QueryRankSnapshot returns the top-N entries for one day, rank
	// ascending; empty when no snapshot exists.
	QueryRankSnapshot(ctx context.Context, country, date string, limit int) ([]model.DomainRankEntry, error)

	// RankDates lists the snapshot dates available for a country within
	// [since, until], ascending. Empty bounds are open.
	RankDates(ctx context.Context, country, since, until string) ([]string, error)

	// LatestRankDate returns the most recent snapshot date for a country,
	// or "" when none exists.
	LatestRankDate(ctx context.Context, country string) (string, error)
}

// Classification pairs a ranking entry with its curated verdict.
type Classification struct {
	Entry  model.DomainRankEntry `json:"entry"`
	Status Status                `json:"status"`
	Note   string                `json:"note,omitempty"`
}

// Counts tallies verdicts over one snapshot.
type Counts struct {
	Gated    int `json:"gated"`
	NotGated int `json:"not_gated"`
	Unknown  int `json:"unknown"`
}

// DailyCount is one day's verdict tally.
type DailyCount struct {
	Date   string `json:"date"`
	Counts Counts `json:"counts"`
}

// CuratedPresence reports one curated domain's standing in a snapshot.
type CuratedPresence struct {
	Record Record `json:"record"`
	InTop  bool   `json:"in_top"`
	Rank   *int   `json:"rank,omitempty"`
}

// Classifier joins ranking snapshots against the curated list. Stateless
// beyond the immutable list; safe for concurrent use.
type Classifier struct {
	source SnapshotSource
	list   *List
}

// NewClassifier creates a classifier over source and the curated list.
func NewClassifier(source SnapshotSource, list *List) *Classifier {
	return &Classifier{source: source, list: list}
}

// resolveDate picks the requested date or the latest available snapshot.
func (c *Classifier) resolveDate(ctx context.Context, country, date string) (string, error) {
	if date != "" {
		if _, err := model.ParseDay(date); err != nil {
			return "", err
		}
		return date, nil
	}
	latest, err := c.source.LatestRankDate(ctx, country)
	if err != nil {
		return "", fmt.Errorf("resolve latest snapshot date: %w", err)
	}
	if latest == "" {
		return "", fmt.Errorf("%w: no snapshots for %s", ErrNoSnapshot, country)
	}
	return latest, nil
}

// ClassifyTop annotates the top-N snapshot for (country, date) with curated
// verdicts. An empty date selects the latest snapshot. Domains absent from
// the curated list are unknown; the classifier never infers compliance.
func (c *Classifier) ClassifyTop(ctx context.Context, country, date string, limit int) (string, []Classification, Counts, error) {
	cc, err := model.NormalizeCountry(country)
	if err != nil {
		return "", nil, Counts{}, err
	}
	day, err := c.resolveDate(ctx, cc, date)
	if err != nil {
		return "", nil, Counts{}, err
	}

	entries, err := c.source.QueryRankSnapshot(ctx, cc, day, limit)
	if err != nil {
		return "", nil, Counts{}, fmt.Errorf("query snapshot: %w", err)
	}
	if len(entries) == 0 {
		return "", nil, Counts{}, fmt.Errorf("%w: %s on %s", ErrNoSnapshot, cc, day)
	}

	out := make([]Classification, 0, len(entries))
	var counts Counts
	for _, e := range entries {
		rec := c.list.Status(e.Domain)
		switch rec.Status {
		case StatusGated:
			counts.Gated++
		case StatusNotGated:
			counts.NotGated++
		default:
			counts.Unknown++
		}
		out = append(out, Classification{Entry: e, Status: rec.Status, Note: rec.Note})
	}

	metrics.RecordAgeGateJoin()
	return day, out, counts, nil
}

// DailyGatedCounts repeats the join for every snapshot date in
// [since, until]. Dates without snapshots are skipped, not zero-filled.
func (c *Classifier) DailyGatedCounts(ctx context.Context, country, since, until string, limit int) ([]DailyCount, error) {
	cc, err := model.NormalizeCountry(country)
	if err != nil {
		return nil, err
	}
	for _, d := range []string{since, until} {
		if d == "" {
			continue
		}
		if _, err := model.ParseDay(d); err != nil {
			return nil, err
		}
	}

	dates, err := c.source.RankDates(ctx, cc, since, until)
	if err != nil {
		return nil, fmt.Errorf("list snapshot dates: %w", err)
	}

	out := make([]DailyCount, 0, len(dates))
	for _, day := range dates {
		_, _, counts, err := c.ClassifyTop(ctx, cc, day, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, DailyCount{Date: day, Counts: counts})
	}
	return out, nil
}

// CuratedStatus reports every curated domain with its verdict and whether
// it appears in the day's top-N. An empty date selects the latest snapshot.
func (c *Classifier) CuratedStatus(ctx context.Context, country, date string, limit int) (string, []CuratedPresence, error) {
	cc, err := model.NormalizeCountry(country)
	if err != nil {
		return "", nil, err
	}
	day, err := c.resolveDate(ctx, cc, date)
	if err != nil {
		return "", nil, err
	}

	entries, err := c.source.QueryRankSnapshot(ctx, cc, day, limit)
	if err != nil {
		return "", nil, fmt.Errorf("query snapshot: %w", err)
	}
	topRanks := make(map[string]int, len(entries))
	for _, e := range entries {
		topRanks[NormalizeDomain(e.Domain)] = e.Rank
	}

	records := c.list.Records()
	out := make([]CuratedPresence, 0, len(records))
	for _, rec := range records {
		p := CuratedPresence{Record: rec}
		if rank, ok := topRanks[NormalizeDomain(rec.Domain)]; ok {
			r := rank
			p.InTop = true
			p.Rank = &r
		}
		out = append(out, p)
	}
	return day, out, nil
}
