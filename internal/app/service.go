// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/netshift/netshift/internal/adapters/ingest"
	jobqueue "github.com/netshift/netshift/internal/adapters/mq/queue"
	workerpool "github.com/netshift/netshift/internal/adapters/mq/worker"
	"github.com/netshift/netshift/internal/adapters/repository"
	"github.com/netshift/netshift/internal/config"
	"github.com/netshift/netshift/internal/domain/agegate"
	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/internal/domain/rankdiff"
	"github.com/netshift/netshift/internal/domain/window"
	"github.com/netshift/netshift/pkg/logger"
)

// Service glues the store, domain engines and ingestion pipeline together
// and implements the API dependency surface.
type Service struct {
	mu sync.RWMutex

	cfg *config.Config

	// Core components
	store      repository.Store
	registry   *model.Registry
	engine     *window.Engine
	comparator *rankdiff.Comparator
	classifier *agegate.Classifier

	// Ingestion pipeline
	jobQueue jobqueue.Queue
	runner   *ingest.Runner
	pool     *workerpool.Pool
	cron     *cron.Cron

	// State
	started   bool
	startedAt time.Time
	stopCh    chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects a pre-built store, bypassing the SQLite open on Start.
// Mainly for tests.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// New constructs a Service from configuration.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting service...")

	if s.store == nil {
		inner, err := repository.Open(s.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = repository.NewCachedStore(inner,
			repository.WithCacheEntries(s.cfg.SnapshotCacheSize),
			repository.WithCacheTTL(time.Duration(s.cfg.SnapshotCacheTTLSeconds)*time.Second),
		)
	}

	events := make([]model.Event, 0, len(s.cfg.Events))
	for _, ec := range s.cfg.Events {
		day, err := model.ParseDay(ec.Date)
		if err != nil {
			return fmt.Errorf("event %q: %w", ec.Slug, err)
		}
		events = append(events, model.Event{
			Slug:    ec.Slug,
			Name:    ec.Name,
			Country: ec.Country,
			Instant: day,
		})
	}
	s.registry = model.NewRegistry(events)

	s.engine = window.NewEngine(s.store, window.WithMinPoints(s.cfg.MinWindowPoints))
	s.comparator = rankdiff.NewComparator(s.store)

	curated, err := agegate.LoadCurated()
	if err != nil {
		return fmt.Errorf("load curated list: %w", err)
	}
	s.classifier = agegate.NewClassifier(s.store, curated)

	radar := ingest.NewRadarClient(s.cfg.RadarAPIToken,
		ingest.WithRadarBase(s.cfg.RadarAPIBase))
	ooni := ingest.NewOONIClient(ingest.WithOONIBase(s.cfg.OONIAPIBase))
	s.runner = ingest.NewRunner(s.store, radar, ooni,
		ingest.WithDefaultDays(s.cfg.DefaultWindowDays),
		ingest.WithDefaultLimit(s.cfg.RankLimit),
	)

	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.cfg.IngestQueueSize))
	s.pool = workerpool.NewPool(s.cfg.IngestWorkers, s.jobQueue, s.runner)
	s.pool.Start(ctx)

	if err := s.startScheduler(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.cfg.IngestQueueSize),
		logger.Int("events", len(events)),
	)
	return nil
}

// startScheduler registers recurring ingestion jobs. An empty schedule
// disables its job family.
func (s *Service) startScheduler(ctx context.Context) error {
	s.cron = cron.New()

	schedules := []struct {
		spec  string
		kinds []ingest.Kind
	}{
		{s.cfg.TrafficSchedule, []ingest.Kind{ingest.KindHTTP, ingest.KindL3, ingest.KindBots}},
		{s.cfg.RankingSchedule, []ingest.Kind{ingest.KindTop}},
		{s.cfg.OONISchedule, []ingest.Kind{ingest.KindOONI}},
	}
	for _, sched := range schedules {
		if sched.spec == "" {
			continue
		}
		kinds := sched.kinds
		if _, err := s.cron.AddFunc(sched.spec, func() {
			s.enqueueRefresh(ctx, kinds)
		}); err != nil {
			return fmt.Errorf("schedule %q: %w", sched.spec, err)
		}
	}

	s.cron.Start()
	return nil
}

// enqueueRefresh queues one job per kind per configured country.
func (s *Service) enqueueRefresh(ctx context.Context, kinds []ingest.Kind) {
	for _, country := range s.cfg.Countries {
		for _, kind := range kinds {
			job := ingest.NewJob(kind, country)
			if !s.jobQueue.Enqueue(ctx, job) {
				s.logger.Warn(ctx, "scheduled job dropped, queue full",
					logger.String("kind", kind.String()),
					logger.String("country", country))
			}
		}
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping service...")

	if s.cron != nil {
		s.cron.Stop()
	}
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// DefaultCountry returns the country used when a request omits one.
func (s *Service) DefaultCountry() string { return s.cfg.DefaultCountry }

// DefaultEventSlug returns the registry entry used when none is named.
func (s *Service) DefaultEventSlug() string { return s.cfg.DefaultEventSlug }

// MaxQueryLimit caps ?limit on ranking endpoints.
func (s *Service) MaxQueryLimit() int { return s.cfg.MaxQueryLimit }

// DefaultWindowDays sizes pre/post windows when a request omits ?days.
func (s *Service) DefaultWindowDays() int { return s.cfg.DefaultWindowDays }

// ControlCountries returns the default synthetic-control set.
func (s *Service) ControlCountries() []string { return s.cfg.ControlCountries }

// Events lists the registered events.
func (s *Service) Events(ctx context.Context) []model.Event {
	return s.registry.All()
}

// Event resolves a slug, defaulting when empty.
func (s *Service) Event(ctx context.Context, slug string) (model.Event, error) {
	if slug == "" {
		slug = s.cfg.DefaultEventSlug
	}
	return s.registry.Resolve(slug)
}

// Timeseries returns stored points for one metric in [from, to).
func (s *Service) Timeseries(ctx context.Context, country string, metric model.Metric, from, to time.Time) ([]model.MetricPoint, error) {
	country, err := model.NormalizeCountry(country)
	if err != nil {
		return nil, err
	}
	return s.store.QueryPoints(ctx, country, metric, from, to)
}

// AttackSeries bundles both layer-3 directions for one country.
type AttackSeries struct {
	Target []model.MetricPoint
	Origin []model.MetricPoint
}

// Attacks returns layer-3 attack bytes in both directions.
func (s *Service) Attacks(ctx context.Context, country string, from, to time.Time) (AttackSeries, error) {
	country, err := model.NormalizeCountry(country)
	if err != nil {
		return AttackSeries{}, err
	}
	target, err := s.store.QueryPoints(ctx, country, model.MetricL3BytesTarget, from, to)
	if err != nil {
		return AttackSeries{}, err
	}
	origin, err := s.store.QueryPoints(ctx, country, model.MetricL3BytesOrigin, from, to)
	if err != nil {
		return AttackSeries{}, err
	}
	return AttackSeries{Target: target, Origin: origin}, nil
}

// WindowStats computes before/after statistics for one metric around an
// event. Zero days falls back to the configured default; nil controls falls
// back to the configured control set.
func (s *Service) WindowStats(ctx context.Context, country string, metric model.Metric, slug string, days int, controls []string) (window.Result, error) {
	ev, err := s.Event(ctx, slug)
	if err != nil {
		return window.Result{}, err
	}
	if country == "" {
		country = ev.Country
	}
	if days <= 0 {
		days = s.cfg.DefaultWindowDays
	}
	if controls == nil {
		controls = s.cfg.ControlCountries
	}
	spec, err := model.NewWindowSpec(ev, days)
	if err != nil {
		return window.Result{}, err
	}
	return s.engine.Stats(ctx, country, metric, spec, controls)
}

// RankChanges compares two ranking snapshots.
func (s *Service) RankChanges(ctx context.Context, country, dateA, dateB string, limit int) ([]rankdiff.Change, error) {
	return s.comparator.Changes(ctx, country, dateA, dateB, s.clampLimit(limit))
}

// TopDomains returns one snapshot, resolving an empty date to the latest.
// A non-empty category keeps only matching rows.
func (s *Service) TopDomains(ctx context.Context, country, date, category string, limit int) (string, []model.DomainRankEntry, error) {
	country, err := model.NormalizeCountry(country)
	if err != nil {
		return "", nil, err
	}
	limit = s.clampLimit(limit)

	if date == "" {
		date, err = s.store.LatestRankDate(ctx, country)
		if err != nil {
			return "", nil, err
		}
		if date == "" {
			return "", nil, fmt.Errorf("%w: no snapshots for %s", agegate.ErrNoSnapshot, country)
		}
	}
	entries, err := s.store.QueryRankSnapshot(ctx, country, date, limit)
	if err != nil {
		return "", nil, err
	}
	if category != "" {
		// The snapshot slice may be shared with the store's cache; never
		// filter it in place.
		filtered := make([]model.DomainRankEntry, 0, len(entries))
		for _, e := range entries {
			if strings.EqualFold(e.Category, category) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return date, entries, nil
}

// ClassifyTopDomains joins a snapshot against the curated age-gate list.
func (s *Service) ClassifyTopDomains(ctx context.Context, country, date string, limit int) (string, []agegate.Classification, agegate.Counts, error) {
	country, err := model.NormalizeCountry(country)
	if err != nil {
		return "", nil, agegate.Counts{}, err
	}
	return s.classifier.ClassifyTop(ctx, country, date, s.clampLimit(limit))
}

// AgeGateStatus reports curated-domain presence in a snapshot.
func (s *Service) AgeGateStatus(ctx context.Context, country, date string, limit int) (string, []agegate.CuratedPresence, error) {
	country, err := model.NormalizeCountry(country)
	if err != nil {
		return "", nil, err
	}
	return s.classifier.CuratedStatus(ctx, country, date, s.clampLimit(limit))
}

// AgeGateTimeseries returns daily gated-domain counts over a date range.
func (s *Service) AgeGateTimeseries(ctx context.Context, country, since, until string, limit int) ([]agegate.DailyCount, error) {
	country, err := model.NormalizeCountry(country)
	if err != nil {
		return nil, err
	}
	return s.classifier.DailyGatedCounts(ctx, country, since, until, s.clampLimit(limit))
}

// EnqueueIngest submits an ingestion job. Returns false when the queue is
// full.
func (s *Service) EnqueueIngest(ctx context.Context, job ingest.Job) bool {
	return s.jobQueue.Enqueue(ctx, job)
}

// Stats summarizes runtime state for the stats endpoint.
type Stats struct {
	UptimeSeconds float64  `json:"uptime_seconds"`
	MetricPoints  int64    `json:"metric_points"`
	RankRows      int64    `json:"rank_rows"`
	QueueLen      int      `json:"queue_len"`
	QueueCapacity int      `json:"queue_capacity"`
	Workers       int      `json:"workers"`
	Events        int      `json:"events"`
	Countries     []string `json:"countries"`
}

// GetStats collects counters from the store and pipeline.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		MetricPoints:  counts.MetricPoints,
		RankRows:      counts.RankRows,
		QueueLen:      s.jobQueue.Len(ctx),
		QueueCapacity: s.cfg.IngestQueueSize,
		Workers:       s.pool.Size(),
		Events:        len(s.registry.All()),
		Countries:     s.cfg.Countries,
	}, nil
}

// StoreCounts exposes stored row counts for the health endpoint.
func (s *Service) StoreCounts(ctx context.Context) (repository.Counts, error) {
	return s.store.Counts(ctx)
}

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 || limit > s.cfg.MaxQueryLimit {
		return s.cfg.MaxQueryLimit
	}
	return limit
}
