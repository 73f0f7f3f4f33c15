package repository

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/metrics"
)

// Cache sizing defaults.
const (
	defaultCacheEntries = 128
	defaultCacheTTL     = 5 * time.Minute
)

// CachedStore decorates a Store with an expirable LRU over rank snapshot
// reads. Snapshots are re-joined on every age-gate and rank-change request
// but only change when ingestion writes, so a short TTL removes nearly all
// repeat reads. Point queries pass through uncached.
type CachedStore struct {
	Store
	snapshots *lru.LRU[string, []model.DomainRankEntry]
}

// CacheOption applies a configuration option to the CachedStore.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	entries int
	ttl     time.Duration
}

// WithCacheEntries sets the maximum number of cached snapshots.
func WithCacheEntries(n int) CacheOption {
	return func(c *cacheConfig) {
		if n > 0 {
			c.entries = n
		}
	}
}

// WithCacheTTL sets the snapshot expiry.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *cacheConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewCachedStore wraps inner with a snapshot cache.
func NewCachedStore(inner Store, opts ...CacheOption) *CachedStore {
	cfg := &cacheConfig{entries: defaultCacheEntries, ttl: defaultCacheTTL}
	for _, opt := range opts {
		opt(cfg)
	}
	return &CachedStore{
		Store:     inner,
		snapshots: lru.NewLRU[string, []model.DomainRankEntry](cfg.entries, nil, cfg.ttl),
	}
}

// QueryRankSnapshot serves from the cache when possible.
func (c *CachedStore) QueryRankSnapshot(ctx context.Context, country, date string, limit int) ([]model.DomainRankEntry, error) {
	key := fmt.Sprintf("%s|%s|%d", country, date, limit)
	if cached, ok := c.snapshots.Get(key); ok {
		metrics.RecordSnapshotCacheHit()
		return cached, nil
	}
	metrics.RecordSnapshotCacheMiss()

	entries, err := c.Store.QueryRankSnapshot(ctx, country, date, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		c.snapshots.Add(key, entries)
	}
	return entries, nil
}

// UpsertRankEntries writes through and drops the cache, since fresh rows
// may supersede any cached day.
func (c *CachedStore) UpsertRankEntries(ctx context.Context, entries []model.DomainRankEntry) (int, error) {
	n, err := c.Store.UpsertRankEntries(ctx, entries)
	if n > 0 {
		c.snapshots.Purge()
	}
	return n, err
}
