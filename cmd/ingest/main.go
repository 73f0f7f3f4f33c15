// Command ingest runs ingestion jobs synchronously from the command line,
// for backfills and one-off refreshes without a running server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/netshift/netshift/internal/adapters/ingest"
	"github.com/netshift/netshift/internal/adapters/repository"
	"github.com/netshift/netshift/internal/config"
	"github.com/netshift/netshift/pkg/logger"
)

func main() {
	var (
		kind      = flag.String("kind", "", "job kind: http, l3, bots, top, ooni (empty runs all)")
		country   = flag.String("country", "", "ISO alpha-2 country code (default from config)")
		days      = flag.Int("days", 0, "lookback days for timeseries kinds")
		date      = flag.String("date", "", "snapshot date YYYY-MM-DD for top fetches")
		direction = flag.String("direction", "", "layer-3 direction: target or origin")
		limit     = flag.Int("limit", 0, "snapshot depth for top fetches")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("ingest-cli")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	store, err := repository.Open(cfg.DBPath)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	radar := ingest.NewRadarClient(cfg.RadarAPIToken, ingest.WithRadarBase(cfg.RadarAPIBase))
	ooni := ingest.NewOONIClient(ingest.WithOONIBase(cfg.OONIAPIBase))
	runner := ingest.NewRunner(store, radar, ooni,
		ingest.WithDefaultDays(cfg.DefaultWindowDays),
		ingest.WithDefaultLimit(cfg.RankLimit),
	)

	kinds := ingest.Kinds()
	if *kind != "" {
		k, err := ingest.ParseKind(*kind)
		if err != nil {
			log.Error(ctx, "invalid kind", logger.Error(err))
			os.Exit(2)
		}
		kinds = []ingest.Kind{k}
	}
	cc := *country
	if cc == "" {
		cc = cfg.DefaultCountry
	}

	failed := false
	for _, k := range kinds {
		job := ingest.NewJob(k, cc)
		job.Days = *days
		job.Date = *date
		job.Direction = *direction
		job.Limit = *limit

		n, err := runner.Run(ctx, job)
		if err != nil {
			log.Error(ctx, "job failed", logger.String("kind", k.String()), logger.Error(err))
			failed = true
			continue
		}
		log.Info(ctx, "job complete", logger.String("kind", k.String()), logger.Int("rows", n))
	}
	if failed {
		os.Exit(1)
	}
}
