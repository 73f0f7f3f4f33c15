package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/netshift/netshift/internal/config"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"NETSHIFT_CONFIG",
		"NETSHIFT_ADDR",
		"NETSHIFT_DB_PATH",
		"NETSHIFT_DEFAULT_COUNTRY",
		"NETSHIFT_DEFAULT_WINDOW_DAYS",
		"NETSHIFT_INGEST_WORKERS",
		"NETSHIFT_RADAR_API_TOKEN",
	} {
		_ = os.Unsetenv(key)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netshift.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.DefaultCountry, convey.ShouldEqual, "GB")
				convey.So(cfg.DefaultWindowDays, convey.ShouldEqual, 14)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			clearConfigEnvVars()
			_ = os.Setenv("NETSHIFT_ADDR", ":8080")
			_ = os.Setenv("NETSHIFT_DEFAULT_COUNTRY", "FR")
			_ = os.Setenv("NETSHIFT_DEFAULT_WINDOW_DAYS", "7")
			_ = os.Setenv("NETSHIFT_RADAR_API_TOKEN", "secret")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DefaultCountry, convey.ShouldEqual, "FR")
				convey.So(cfg.DefaultWindowDays, convey.ShouldEqual, 7)
				convey.So(cfg.RadarAPIToken, convey.ShouldEqual, "secret")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			clearConfigEnvVars()
			yamlContent := `
addr: ":9090"
db_path: "/tmp/netshift-test.db"
default_window_days: 10
countries:
  - GB
  - IE
events:
  - slug: test-event
    name: Test Event
    country: GB
    date: "2025-01-01"
default_event_slug: test-event
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("NETSHIFT_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/netshift-test.db")
				convey.So(cfg.DefaultWindowDays, convey.ShouldEqual, 10)
				convey.So(cfg.Countries, convey.ShouldResemble, []string{"GB", "IE"})
				convey.So(cfg.Events, convey.ShouldHaveLength, 1)
				convey.So(cfg.Events[0].Slug, convey.ShouldEqual, "test-event")
			})
		})

		convey.Convey("When loading config with both file and env vars", func() {
			clearConfigEnvVars()
			tmpFile := createTempConfigFile(t, "addr: \":9090\"\n")
			_ = os.Setenv("NETSHIFT_CONFIG", tmpFile)
			_ = os.Setenv("NETSHIFT_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars should take precedence", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config is invalid", func() {
			clearConfigEnvVars()

			convey.Convey("Then an empty addr should be rejected", func() {
				tmpFile := createTempConfigFile(t, "addr: \"\"\n")
				_ = os.Setenv("NETSHIFT_CONFIG", tmpFile)
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})

			convey.Convey("Then a bad event date should be rejected", func() {
				tmpFile := createTempConfigFile(t, `
events:
  - slug: bad-date
    name: Bad Date
    country: GB
    date: "July 25"
`)
				_ = os.Setenv("NETSHIFT_CONFIG", tmpFile)
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})

			convey.Convey("Then duplicate event slugs should be rejected", func() {
				tmpFile := createTempConfigFile(t, `
events:
  - slug: dup
    name: One
    country: GB
    date: "2025-01-01"
  - slug: dup
    name: Two
    country: GB
    date: "2025-01-02"
`)
				_ = os.Setenv("NETSHIFT_CONFIG", tmpFile)
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(err, convey.ShouldWrap, config.ErrInvalidConfig)
			})

			convey.Convey("Then a missing config file should fail loading", func() {
				_ = os.Setenv("NETSHIFT_CONFIG", "/nonexistent/netshift.yaml")
				defer clearConfigEnvVars()

				_, err := config.Load(ctx)
				convey.So(err, convey.ShouldWrap, config.ErrLoadConfig)
			})
		})
	})
}
