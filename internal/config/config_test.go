package config_test

import (
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/netshift/netshift/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBPath, convey.ShouldEqual, "netshift.db")
			convey.So(cfg.DefaultCountry, convey.ShouldEqual, "GB")
			convey.So(cfg.DefaultWindowDays, convey.ShouldEqual, 14)
			convey.So(cfg.MinWindowPoints, convey.ShouldEqual, 3)
			convey.So(cfg.RankLimit, convey.ShouldEqual, 100)
			convey.So(cfg.IngestWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ControlCountries, convey.ShouldResemble, []string{"IE", "NL"})
		})

		convey.Convey("Then the default event registry should hold the UK event", func() {
			convey.So(cfg.Events, convey.ShouldHaveLength, 1)
			convey.So(cfg.Events[0].Slug, convey.ShouldEqual, "uk-age-verify-2025")
			convey.So(cfg.Events[0].Country, convey.ShouldEqual, "GB")
			convey.So(cfg.Events[0].Date, convey.ShouldEqual, "2025-07-25")
			convey.So(cfg.DefaultEventSlug, convey.ShouldEqual, cfg.Events[0].Slug)
		})
	})
}
