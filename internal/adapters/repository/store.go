// Package repository persists metric time series and ranking snapshots.
package repository

import (
	"context"
	"time"

	"github.com/netshift/netshift/internal/domain/model"
)

// Counts summarizes stored row counts per table.
type Counts struct {
	MetricPoints int64 `json:"metric_points"`
	RankRows     int64 `json:"rank_rows"`
}

// Store provides read/write access to ingested measurement data. Reads
// reflect a single consistent snapshot of the database at call time.
type Store interface {
	// QueryPoints returns points for (country, metric) within the
	// half-open interval [from, to), ordered by timestamp ascending.
	QueryPoints(ctx context.Context, country string, metric model.Metric, from, to time.Time) ([]model.MetricPoint, error)

	// QueryRankSnapshot returns the top-N entries for one day, rank
	// ascending, truncated to limit. Empty when no snapshot exists.
	QueryRankSnapshot(ctx context.Context, country, date string, limit int) ([]model.DomainRankEntry, error)

	// RankDates lists snapshot dates for a country within [since, until],
	// ascending. Empty bounds are open.
	RankDates(ctx context.Context, country, since, until string) ([]string, error)

	// LatestRankDate returns the most recent snapshot date for a country,
	// or "" when none exists.
	LatestRankDate(ctx context.Context, country string) (string, error)

	// UpsertPoints writes points, replacing values for existing
	// (country, metric, ts) keys. Returns the number of rows written.
	UpsertPoints(ctx context.Context, points []model.MetricPoint) (int, error)

	// UpsertRankEntries writes ranking rows, replacing existing
	// (country, date, rank) keys. Returns the number of rows written.
	UpsertRankEntries(ctx context.Context, entries []model.DomainRankEntry) (int, error)

	// Counts reports stored row counts for monitoring.
	Counts(ctx context.Context) (Counts, error)

	Close() error
}
