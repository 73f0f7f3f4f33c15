package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/netshift/netshift/internal/adapters/repository"
	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/logger"
	"github.com/netshift/netshift/pkg/metrics"
)

// Runner defaults, used when a job leaves the optional fields zero.
const (
	defaultDays  = 14
	defaultLimit = 100
)

// Runner executes ingestion jobs: fetch from the upstream for the job's
// kind, normalize and upsert into the store. Runs are idempotent; repeating
// a job re-writes the same keys.
type Runner struct {
	store repository.Store
	radar *RadarClient
	ooni  *OONIClient
	log   logger.Logger

	days  int
	limit int
}

// RunnerOption applies a configuration option to the Runner.
type RunnerOption func(*Runner)

// WithDefaultDays sets the lookback used when a job has none.
func WithDefaultDays(days int) RunnerOption {
	return func(r *Runner) {
		if days > 0 {
			r.days = days
		}
	}
}

// WithDefaultLimit sets the snapshot depth used when a job has none.
func WithDefaultLimit(limit int) RunnerOption {
	return func(r *Runner) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// NewRunner creates a runner over the given store and upstream clients.
func NewRunner(store repository.Store, radar *RadarClient, ooni *OONIClient, opts ...RunnerOption) *Runner {
	r := &Runner{
		store: store,
		radar: radar,
		ooni:  ooni,
		log:   logger.Named("ingest"),
		days:  defaultDays,
		limit: defaultLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one job and returns the number of rows written.
func (r *Runner) Run(ctx context.Context, job Job) (int, error) {
	start := time.Now()
	n, err := r.run(ctx, job)

	metrics.RecordIngestJob(job.Kind.String(), err == nil)
	metrics.ObserveIngestDuration(job.Kind.String(), float64(time.Since(start).Milliseconds()))
	if err != nil {
		r.log.Error(ctx, "ingest job failed",
			logger.String("id", job.ID),
			logger.String("kind", job.Kind.String()),
			logger.String("country", job.Country),
			logger.Error(err))
		return 0, err
	}

	metrics.RecordIngestPoints(job.Kind.String(), n)
	r.log.Info(ctx, "ingest job done",
		logger.String("id", job.ID),
		logger.String("kind", job.Kind.String()),
		logger.String("country", job.Country),
		logger.Int("rows", n),
		logger.Duration("took", time.Since(start)))
	return n, nil
}

func (r *Runner) run(ctx context.Context, job Job) (int, error) {
	country, err := model.NormalizeCountry(job.Country)
	if err != nil {
		return 0, err
	}
	days := job.Days
	if days <= 0 {
		days = r.days
	}

	switch job.Kind {
	case KindHTTP:
		points, err := r.radar.FetchHTTPRequests(ctx, country, days)
		if err != nil {
			return 0, err
		}
		return r.store.UpsertPoints(ctx, points)

	case KindL3:
		// No direction on the job means ingest both.
		directions := []string{"target", "origin"}
		if job.Direction != "" {
			directions = []string{job.Direction}
		}
		total := 0
		for _, dir := range directions {
			points, err := r.radar.FetchL3Attacks(ctx, country, dir, days)
			if err != nil {
				return total, err
			}
			n, err := r.store.UpsertPoints(ctx, points)
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil

	case KindBots:
		points, err := r.radar.FetchBotTraffic(ctx, country, days)
		if err != nil {
			return 0, err
		}
		return r.store.UpsertPoints(ctx, points)

	case KindTop:
		limit := job.Limit
		if limit <= 0 {
			limit = r.limit
		}
		entries, err := r.radar.FetchTopDomains(ctx, country, job.Date, limit)
		if err != nil {
			return 0, err
		}
		return r.store.UpsertRankEntries(ctx, entries)

	case KindOONI:
		return r.runOONI(ctx, country, days)

	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, job.Kind)
	}
}

// runOONI fetches all tools concurrently. A failing tool fails the job, but
// rows fetched by the other tools are still written.
func (r *Runner) runOONI(ctx context.Context, country string, days int) (int, error) {
	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, tool := range OONITools() {
		tool := tool
		g.Go(func() error {
			points, err := r.ooni.FetchReachability(gctx, country, tool, days)
			if err != nil {
				return err
			}
			n, err := r.store.UpsertPoints(gctx, points)
			mu.Lock()
			total += n
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}
