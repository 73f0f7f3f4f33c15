package agegate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/netshift/netshift/internal/domain/agegate"
	"github.com/netshift/netshift/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSnapshots struct {
	byDate map[string][]model.DomainRankEntry
}

func (f *fakeSnapshots) QueryRankSnapshot(_ context.Context, country, date string, limit int) ([]model.DomainRankEntry, error) {
	var out []model.DomainRankEntry
	for _, e := range f.byDate[date] {
		if e.Country == country && e.Rank <= limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSnapshots) RankDates(_ context.Context, country, since, until string) ([]string, error) {
	var out []string
	for date, entries := range f.byDate {
		if len(entries) == 0 || entries[0].Country != country {
			continue
		}
		if since != "" && date < since {
			continue
		}
		if until != "" && date > until {
			continue
		}
		out = append(out, date)
	}
	// map order is random; sort for the ascending contract
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeSnapshots) LatestRankDate(_ context.Context, country string) (string, error) {
	latest := ""
	for date, entries := range f.byDate {
		if len(entries) > 0 && entries[0].Country == country && date > latest {
			latest = date
		}
	}
	return latest, nil
}

func rankEntries(country, date string, domains ...string) []model.DomainRankEntry {
	out := make([]model.DomainRankEntry, len(domains))
	for i, d := range domains {
		out[i] = model.DomainRankEntry{Country: country, Date: date, Rank: i + 1, Domain: d}
	}
	return out
}

func TestNormalizeDomain(t *testing.T) {
	Convey("Given assorted raw domain spellings", t, func() {
		cases := map[string]string{
			"Reddit.com":                    "reddit.com",
			"https://www.reddit.com/r/uk":   "reddit.com",
			"http://x.com/":                 "x.com",
			"WWW.TIKTOK.COM":                "tiktok.com",
			"discord.com:443":               "discord.com",
			"pornhub.com.":                  "pornhub.com",
			"store.steampowered.com?x=1":    "store.steampowered.com",
			"  bsky.app  ":                  "bsky.app",
		}

		Convey("When normalizing", func() {
			for raw, want := range cases {
				So(agegate.NormalizeDomain(raw), ShouldEqual, want)
			}
		})
	})
}

func TestCuratedList(t *testing.T) {
	Convey("Given the embedded curated list", t, func() {
		list, err := agegate.LoadCurated()

		Convey("Then it loads and is non-trivial", func() {
			So(err, ShouldBeNil)
			So(list.Len(), ShouldBeGreaterThan, 10)
		})

		Convey("Then lookups normalize before matching", func() {
			So(err, ShouldBeNil)
			So(list.Status("https://www.reddit.com/").Status, ShouldEqual, agegate.StatusGated)
			So(list.Status("REDDIT.COM").Status, ShouldEqual, agegate.StatusGated)
		})

		Convey("Then unlisted domains are unknown, never not_gated", func() {
			So(err, ShouldBeNil)
			So(list.Status("example.org").Status, ShouldEqual, agegate.StatusUnknown)
		})
	})

	Convey("Given records with an invalid status", t, func() {
		_, err := agegate.NewList([]agegate.Record{{Domain: "a.com", Status: "maybe"}})

		Convey("Then construction fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClassifyTop(t *testing.T) {
	list, err := agegate.NewList([]agegate.Record{
		{Domain: "reddit.com", Status: agegate.StatusGated, Note: "UK checks"},
		{Domain: "wikipedia.org", Status: agegate.StatusNotGated},
		{Domain: "tiktok.com", Status: agegate.StatusUnknown},
	})
	if err != nil {
		t.Fatal(err)
	}

	Convey("Given a snapshot mixing curated and unlisted domains", t, func() {
		src := &fakeSnapshots{byDate: map[string][]model.DomainRankEntry{
			"2025-07-26": rankEntries("GB", "2025-07-26", "google.com", "reddit.com", "wikipedia.org", "tiktok.com"),
			"2025-07-27": rankEntries("GB", "2025-07-27", "google.com", "reddit.com"),
		}}
		classifier := agegate.NewClassifier(src, list)

		Convey("When classifying an explicit date", func() {
			day, results, counts, err := classifier.ClassifyTop(context.Background(), "GB", "2025-07-26", 10)

			Convey("Then each entry carries its curated verdict", func() {
				So(err, ShouldBeNil)
				So(day, ShouldEqual, "2025-07-26")
				So(results, ShouldHaveLength, 4)
				So(results[0].Entry.Domain, ShouldEqual, "google.com")
				So(results[0].Status, ShouldEqual, agegate.StatusUnknown)
				So(results[1].Status, ShouldEqual, agegate.StatusGated)
				So(results[2].Status, ShouldEqual, agegate.StatusNotGated)
			})

			Convey("And counts sum to the snapshot size", func() {
				So(err, ShouldBeNil)
				So(counts.Gated, ShouldEqual, 1)
				So(counts.NotGated, ShouldEqual, 1)
				So(counts.Unknown, ShouldEqual, 2)
			})
		})

		Convey("When no date is given", func() {
			day, _, _, err := classifier.ClassifyTop(context.Background(), "GB", "", 10)

			Convey("Then the latest snapshot is used", func() {
				So(err, ShouldBeNil)
				So(day, ShouldEqual, "2025-07-27")
			})
		})

		Convey("When the requested date has no snapshot", func() {
			_, _, _, err := classifier.ClassifyTop(context.Background(), "GB", "2025-01-01", 10)

			Convey("Then it fails with the no-snapshot kind", func() {
				So(errors.Is(err, agegate.ErrNoSnapshot), ShouldBeTrue)
			})
		})

		Convey("When computing daily gated counts over a range", func() {
			daily, err := classifier.DailyGatedCounts(context.Background(), "GB", "2025-07-25", "2025-07-28", 10)

			Convey("Then only dates with snapshots appear, in order", func() {
				So(err, ShouldBeNil)
				So(daily, ShouldHaveLength, 2)
				So(daily[0].Date, ShouldEqual, "2025-07-26")
				So(daily[0].Counts.Gated, ShouldEqual, 1)
				So(daily[1].Date, ShouldEqual, "2025-07-27")
				So(daily[1].Counts.Gated, ShouldEqual, 1)
			})
		})

		Convey("When reporting curated presence", func() {
			day, presence, err := classifier.CuratedStatus(context.Background(), "GB", "2025-07-26", 10)

			Convey("Then curated domains in the top-N carry their rank", func() {
				So(err, ShouldBeNil)
				So(day, ShouldEqual, "2025-07-26")
				So(presence, ShouldHaveLength, 3)
				byDomain := map[string]agegate.CuratedPresence{}
				for _, p := range presence {
					byDomain[p.Record.Domain] = p
				}
				So(byDomain["reddit.com"].InTop, ShouldBeTrue)
				So(*byDomain["reddit.com"].Rank, ShouldEqual, 2)
			})
		})
	})

	Convey("Given a country with no snapshots at all", t, func() {
		classifier := agegate.NewClassifier(&fakeSnapshots{byDate: map[string][]model.DomainRankEntry{}}, list)

		Convey("When classifying without a date", func() {
			_, _, _, err := classifier.ClassifyTop(context.Background(), "FR", "", 10)

			Convey("Then it fails with the no-snapshot kind", func() {
				So(errors.Is(err, agegate.ErrNoSnapshot), ShouldBeTrue)
			})
		})
	})
}
