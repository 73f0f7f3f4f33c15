package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if NETSHIFT_CONFIG is set
//  3. env (prefix NETSHIFT_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("NETSHIFT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: NETSHIFT_ADDR, NETSHIFT_DB_PATH, ...
	// Keys keep their underscores to match the koanf tags on the struct.
	envProvider := env.Provider("NETSHIFT_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "netshift_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.DefaultWindowDays <= 0:
		return fmt.Errorf("%w: default_window_days must be positive", ErrInvalidConfig)
	case c.MinWindowPoints <= 0:
		return fmt.Errorf("%w: min_window_points must be positive", ErrInvalidConfig)
	case c.RankLimit <= 0:
		return fmt.Errorf("%w: rank_limit must be positive", ErrInvalidConfig)
	case c.IngestQueueSize <= 0:
		return fmt.Errorf("%w: ingest_queue_size must be positive", ErrInvalidConfig)
	case c.IngestWorkers <= 0:
		return fmt.Errorf("%w: ingest_workers must be positive", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Events))
	for _, ev := range c.Events {
		if ev.Slug == "" {
			return fmt.Errorf("%w: event slug must not be empty", ErrInvalidConfig)
		}
		if _, dup := seen[ev.Slug]; dup {
			return fmt.Errorf("%w: duplicate event slug %q", ErrInvalidConfig, ev.Slug)
		}
		seen[ev.Slug] = struct{}{}
		if _, err := time.Parse("2006-01-02", ev.Date); err != nil {
			return fmt.Errorf("%w: event %q has invalid date %q", ErrInvalidConfig, ev.Slug, ev.Date)
		}
	}
	return nil
}
