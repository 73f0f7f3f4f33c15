// Command seed populates the store with synthetic measurement data around
// the configured event, so the API and dashboards can be exercised without
// upstream credentials.
package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"time"

	"github.com/netshift/netshift/internal/adapters/repository"
	"github.com/netshift/netshift/internal/config"
	"github.com/netshift/netshift/internal/domain/agegate"
	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/logger"
)

// Synthetic series shape: a stable baseline with a step change after the
// event, plus noise. The step makes window stats and rank changes visible.
const (
	baselineHTTP  = 100.0
	postShiftHTTP = -12.0
	noiseHTTP     = 4.0

	baselineBots = 0.30
	baselineL3   = 5e9

	reachabilityPre  = 0.92
	reachabilityPost = 0.97
)

func main() {
	var (
		days    = flag.Int("days", 21, "days of data on each side of the event")
		seed    = flag.Int64("seed", 42, "random seed")
		country = flag.String("country", "", "country to seed (default from config)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("seed")
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	var event time.Time
	for _, ec := range cfg.Events {
		if ec.Slug == cfg.DefaultEventSlug {
			if event, err = model.ParseDay(ec.Date); err != nil {
				log.Error(ctx, "bad event date", logger.Error(err))
				os.Exit(1)
			}
		}
	}
	if event.IsZero() {
		log.Error(ctx, "default event not found in config")
		os.Exit(1)
	}

	cc := *country
	if cc == "" {
		cc = cfg.DefaultCountry
	}

	store, err := repository.Open(cfg.DBPath)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	rng := rand.New(rand.NewSource(*seed))

	points := seedPoints(rng, cc, event, *days)
	// Control countries get the baseline without the post-event step.
	for _, control := range cfg.ControlCountries {
		points = append(points, seedControlPoints(rng, control, event, *days)...)
	}
	n, err := store.UpsertPoints(ctx, points)
	if err != nil {
		log.Error(ctx, "failed to seed points", logger.Error(err))
		os.Exit(1)
	}

	ranks := seedRanks(rng, cc, event, *days)
	m, err := store.UpsertRankEntries(ctx, ranks)
	if err != nil {
		log.Error(ctx, "failed to seed rankings", logger.Error(err))
		os.Exit(1)
	}

	log.Info(ctx, "seeded synthetic data",
		logger.String("country", cc),
		logger.Int("points", n),
		logger.Int("rank_rows", m),
		logger.Time("event", event))
}

// seedPoints builds daily series for every metric with a visible step at the
// event instant.
func seedPoints(rng *rand.Rand, country string, event time.Time, days int) []model.MetricPoint {
	var out []model.MetricPoint
	for d := -days; d < days; d++ {
		ts := event.AddDate(0, 0, d)
		post := d >= 0

		httpVal := baselineHTTP + rng.NormFloat64()*noiseHTTP
		reach := reachabilityPre
		if post {
			httpVal += postShiftHTTP
			reach = reachabilityPost
		}

		out = append(out,
			model.MetricPoint{Country: country, Metric: model.MetricHTTPRequests, TS: ts, Value: httpVal},
			model.MetricPoint{Country: country, Metric: model.MetricBotTraffic, TS: ts, Value: baselineBots + rng.Float64()*0.05},
			model.MetricPoint{Country: country, Metric: model.MetricL3BytesTarget, TS: ts, Value: baselineL3 * (0.8 + rng.Float64()*0.4)},
			model.MetricPoint{Country: country, Metric: model.MetricL3BytesOrigin, TS: ts, Value: baselineL3 * 0.1 * (0.8 + rng.Float64()*0.4)},
			model.MetricPoint{Country: country, Metric: model.MetricReachabilityTor, TS: ts, Value: clamp01(reach + rng.NormFloat64()*0.02)},
			model.MetricPoint{Country: country, Metric: model.MetricReachabilitySnowflake, TS: ts, Value: clamp01(reach + rng.NormFloat64()*0.03)},
			model.MetricPoint{Country: country, Metric: model.MetricReachabilityPsiphon, TS: ts, Value: clamp01(reach - 0.05 + rng.NormFloat64()*0.03)},
		)
	}
	return out
}

// seedControlPoints mirrors the base series without the post-event step.
func seedControlPoints(rng *rand.Rand, country string, event time.Time, days int) []model.MetricPoint {
	var out []model.MetricPoint
	for d := -days; d < days; d++ {
		ts := event.AddDate(0, 0, d)
		out = append(out, model.MetricPoint{
			Country: country,
			Metric:  model.MetricHTTPRequests,
			TS:      ts,
			Value:   baselineHTTP + rng.NormFloat64()*noiseHTTP,
		})
	}
	return out
}

// seedRanks writes a daily top list mixing curated domains with filler, and
// shuffles some positions after the event.
func seedRanks(rng *rand.Rand, country string, event time.Time, days int) []model.DomainRankEntry {
	curated, err := agegate.LoadCurated()
	if err != nil {
		return nil
	}
	domains := make([]string, 0, 20)
	for _, rec := range curated.Records() {
		domains = append(domains, rec.Domain)
	}
	for _, filler := range []string{"google.com", "youtube.com", "wikipedia.org", "bbc.co.uk", "amazon.co.uk"} {
		domains = append(domains, filler)
	}

	var out []model.DomainRankEntry
	for d := -days; d < days; d++ {
		date := event.AddDate(0, 0, d).Format(model.DayFormat)
		order := rng.Perm(len(domains))
		for i, idx := range order {
			out = append(out, model.DomainRankEntry{
				Country: country,
				Date:    date,
				Rank:    i + 1,
				Domain:  domains[idx],
			})
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
