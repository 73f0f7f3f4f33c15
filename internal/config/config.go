// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() with defaults and Load(ctx) layering file and env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// EventConfig is one entry of the static event registry.
type EventConfig struct {
	// Slug identifies the event in API requests, e.g. "uk-age-verify-2025".
	Slug string `koanf:"slug"`

	// Name is the display name.
	Name string `koanf:"name"`

	// Country is the ISO alpha-2 code the event applies to.
	Country string `koanf:"country"`

	// Date is the event day in YYYY-MM-DD; the event instant is midnight UTC.
	Date string `koanf:"date"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// DefaultCountry is used when a request omits ?country.
	DefaultCountry string `koanf:"default_country"`

	// DefaultWindowDays sizes pre/post comparison windows.
	DefaultWindowDays int `koanf:"default_window_days"`

	// MinWindowPoints is the sample count below which a window is
	// flagged low-confidence.
	MinWindowPoints int `koanf:"min_window_points"`

	// RankLimit is the snapshot depth fetched from upstream rankings.
	RankLimit int `koanf:"rank_limit"`

	// MaxQueryLimit caps ?limit on ranking endpoints.
	MaxQueryLimit int `koanf:"max_query_limit"`

	// RadarAPIBase and RadarAPIToken configure the Cloudflare Radar client.
	RadarAPIBase  string `koanf:"radar_api_base"`
	RadarAPIToken string `koanf:"radar_api_token"`

	// OONIAPIBase configures the OONI aggregation client.
	OONIAPIBase string `koanf:"ooni_api_base"`

	// IngestQueueSize bounds the in-memory ingestion job queue.
	IngestQueueSize int `koanf:"ingest_queue_size"`

	// IngestWorkers sets the number of ingestion workers.
	IngestWorkers int `koanf:"ingest_workers"`

	// SnapshotCacheSize and SnapshotCacheTTLSeconds configure the rank
	// snapshot read cache.
	SnapshotCacheSize       int `koanf:"snapshot_cache_size"`
	SnapshotCacheTTLSeconds int `koanf:"snapshot_cache_ttl_seconds"`

	// Cron schedules for recurring ingestion; empty disables a schedule.
	TrafficSchedule string `koanf:"traffic_schedule"`
	RankingSchedule string `koanf:"ranking_schedule"`
	OONISchedule    string `koanf:"ooni_schedule"`

	// Countries refreshed by the scheduler.
	Countries []string `koanf:"countries"`

	// ControlCountries is the default synthetic-control set for window stats.
	ControlCountries []string `koanf:"control_countries"`

	// Events is the static event registry.
	Events []EventConfig `koanf:"events"`

	// DefaultEventSlug selects the event used when the seeder or scheduler
	// needs one and none was given.
	DefaultEventSlug string `koanf:"default_event_slug"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		Addr:                    ":9080",
		DBPath:                  "netshift.db",
		DefaultCountry:          "GB",
		DefaultWindowDays:       14,
		MinWindowPoints:         3,
		RankLimit:               100,
		MaxQueryLimit:           100,
		RadarAPIBase:            "https://api.cloudflare.com/client/v4",
		OONIAPIBase:             "https://api.ooni.io/api/v1",
		IngestQueueSize:         256,
		IngestWorkers:           runtime.NumCPU(),
		SnapshotCacheSize:       128,
		SnapshotCacheTTLSeconds: 300,
		TrafficSchedule:         "15 * * * *",
		RankingSchedule:         "45 0 * * *",
		OONISchedule:            "30 1 * * *",
		Countries:               []string{"GB"},
		ControlCountries:        []string{"IE", "NL"},
		Events: []EventConfig{
			{
				Slug:    "uk-age-verify-2025",
				Name:    "UK Age Verification (2025-07-25)",
				Country: "GB",
				Date:    "2025-07-25",
			},
		},
		DefaultEventSlug: "uk-age-verify-2025",
	}
}
