package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netshift/netshift/internal/domain/model"
)

// openTestStore creates a migrated in-memory store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, NewMigrationRunner(db).Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return parsed
}

func TestUpsertPoints_QueryPoints_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	points := []model.MetricPoint{
		{Country: "GB", Metric: model.MetricHTTPRequests, TS: ts(t, "2025-07-24T00:00:00Z"), Value: 10},
		{Country: "GB", Metric: model.MetricHTTPRequests, TS: ts(t, "2025-07-24T01:00:00Z"), Value: 20},
		{Country: "GB", Metric: model.MetricHTTPRequests, TS: ts(t, "2025-07-25T00:00:00Z"), Value: 30},
		{Country: "IE", Metric: model.MetricHTTPRequests, TS: ts(t, "2025-07-24T00:00:00Z"), Value: 99},
		{Country: "GB", Metric: model.MetricBotTraffic, TS: ts(t, "2025-07-24T00:00:00Z"), Value: 0.4},
	}
	n, err := store.UpsertPoints(ctx, points)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	got, err := store.QueryPoints(ctx, "GB", model.MetricHTTPRequests,
		ts(t, "2025-07-24T00:00:00Z"), ts(t, "2025-07-25T00:00:00Z"))
	require.NoError(t, err)
	require.Len(t, got, 2, "query interval is half-open: [from, to)")
	assert.Equal(t, 10.0, got[0].Value)
	assert.Equal(t, 20.0, got[1].Value)
	assert.True(t, got[0].TS.Before(got[1].TS), "points ordered by timestamp")
	assert.Equal(t, model.MetricHTTPRequests, got[0].Metric)
}

func TestUpsertPoints_ReplacesExistingKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	when := ts(t, "2025-07-24T00:00:00Z")
	_, err := store.UpsertPoints(ctx, []model.MetricPoint{
		{Country: "GB", Metric: model.MetricHTTPRequests, TS: when, Value: 10},
	})
	require.NoError(t, err)

	_, err = store.UpsertPoints(ctx, []model.MetricPoint{
		{Country: "GB", Metric: model.MetricHTTPRequests, TS: when, Value: 42},
	})
	require.NoError(t, err)

	got, err := store.QueryPoints(ctx, "GB", model.MetricHTTPRequests, when, when.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 42.0, got[0].Value)
}

func TestQueryRankSnapshot_OrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entries := []model.DomainRankEntry{
		{Country: "GB", Date: "2025-07-26", Rank: 3, Domain: "c.com", Category: "Technology"},
		{Country: "GB", Date: "2025-07-26", Rank: 1, Domain: "a.com"},
		{Country: "GB", Date: "2025-07-26", Rank: 2, Domain: "b.com"},
		{Country: "IE", Date: "2025-07-26", Rank: 1, Domain: "x.ie"},
	}
	n, err := store.UpsertRankEntries(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	got, err := store.QueryRankSnapshot(ctx, "GB", "2025-07-26", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.com", got[0].Domain)
	assert.Equal(t, "b.com", got[1].Domain)

	missing, err := store.QueryRankSnapshot(ctx, "GB", "2025-01-01", 10)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestUpsertRankEntries_DomainMovesRank(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertRankEntries(ctx, []model.DomainRankEntry{
		{Country: "GB", Date: "2025-07-26", Rank: 1, Domain: "a.com"},
		{Country: "GB", Date: "2025-07-26", Rank: 2, Domain: "b.com"},
	})
	require.NoError(t, err)

	// Re-ingest with b.com promoted to rank 1; the old rows at rank 1 and
	// for domain b.com must both give way.
	_, err = store.UpsertRankEntries(ctx, []model.DomainRankEntry{
		{Country: "GB", Date: "2025-07-26", Rank: 1, Domain: "b.com"},
		{Country: "GB", Date: "2025-07-26", Rank: 2, Domain: "a.com"},
	})
	require.NoError(t, err)

	got, err := store.QueryRankSnapshot(ctx, "GB", "2025-07-26", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b.com", got[0].Domain)
	assert.Equal(t, "a.com", got[1].Domain)
}

func TestRankDates_And_LatestRankDate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2025-07-20", "2025-07-22", "2025-07-25"} {
		_, err := store.UpsertRankEntries(ctx, []model.DomainRankEntry{
			{Country: "GB", Date: date, Rank: 1, Domain: "a.com"},
		})
		require.NoError(t, err)
	}

	all, err := store.RankDates(ctx, "GB", "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-20", "2025-07-22", "2025-07-25"}, all)

	bounded, err := store.RankDates(ctx, "GB", "2025-07-21", "2025-07-24")
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-07-22"}, bounded)

	latest, err := store.LatestRankDate(ctx, "GB")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-25", latest)

	none, err := store.LatestRankDate(ctx, "FR")
	require.NoError(t, err)
	assert.Equal(t, "", none)
}

func TestCounts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertPoints(ctx, []model.MetricPoint{
		{Country: "GB", Metric: model.MetricHTTPRequests, TS: ts(t, "2025-07-24T00:00:00Z"), Value: 1},
	})
	require.NoError(t, err)
	_, err = store.UpsertRankEntries(ctx, []model.DomainRankEntry{
		{Country: "GB", Date: "2025-07-26", Rank: 1, Domain: "a.com"},
		{Country: "GB", Date: "2025-07-26", Rank: 2, Domain: "b.com"},
	})
	require.NoError(t, err)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.MetricPoints)
	assert.Equal(t, int64(2), counts.RankRows)
}

// countingStore counts snapshot reads hitting the inner store.
type countingStore struct {
	Store
	snapshotReads int
}

func (c *countingStore) QueryRankSnapshot(ctx context.Context, country, date string, limit int) ([]model.DomainRankEntry, error) {
	c.snapshotReads++
	return c.Store.QueryRankSnapshot(ctx, country, date, limit)
}

func TestCachedStore_ServesRepeatsFromCache(t *testing.T) {
	inner := openTestStore(t)
	ctx := context.Background()

	_, err := inner.UpsertRankEntries(ctx, []model.DomainRankEntry{
		{Country: "GB", Date: "2025-07-26", Rank: 1, Domain: "a.com"},
	})
	require.NoError(t, err)

	counting := &countingStore{Store: inner}
	cached := NewCachedStore(counting, WithCacheEntries(8), WithCacheTTL(time.Minute))

	for i := 0; i < 3; i++ {
		got, err := cached.QueryRankSnapshot(ctx, "GB", "2025-07-26", 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, counting.snapshotReads, "repeat reads should be cached")

	// A write invalidates, so the next read goes back to the store.
	_, err = cached.UpsertRankEntries(ctx, []model.DomainRankEntry{
		{Country: "GB", Date: "2025-07-27", Rank: 1, Domain: "b.com"},
	})
	require.NoError(t, err)

	_, err = cached.QueryRankSnapshot(ctx, "GB", "2025-07-26", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, counting.snapshotReads)
}

func TestMigrationsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	db.SetMaxOpenConns(1)
	require.NoError(t, NewMigrationRunner(db).Run())
	require.NoError(t, NewMigrationRunner(db).Run())

	var applied int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied))
	assert.Equal(t, 1, applied)
}
