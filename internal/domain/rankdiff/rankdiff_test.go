package rankdiff_test

import (
	"context"
	"errors"
	"testing"

	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/internal/domain/rankdiff"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeSnapshots serves rank snapshots keyed by date.
type fakeSnapshots struct {
	snapshots map[string][]model.DomainRankEntry
}

func (f *fakeSnapshots) QueryRankSnapshot(_ context.Context, country, date string, limit int) ([]model.DomainRankEntry, error) {
	entries := f.snapshots[date]
	var out []model.DomainRankEntry
	for _, e := range entries {
		if e.Country != country || e.Rank > limit {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func snapshot(country, date string, domains ...string) []model.DomainRankEntry {
	out := make([]model.DomainRankEntry, len(domains))
	for i, d := range domains {
		out[i] = model.DomainRankEntry{Country: country, Date: date, Rank: i + 1, Domain: d}
	}
	return out
}

func TestComparatorChanges(t *testing.T) {
	Convey("Given two snapshots with movement, an entrant, and a drop-out", t, func() {
		src := &fakeSnapshots{snapshots: map[string][]model.DomainRankEntry{
			"2025-07-20": snapshot("GB", "2025-07-20", "a.com", "b.com", "c.com", "x.com"),
			"2025-07-27": snapshot("GB", "2025-07-27", "c.com", "a.com", "b.com", "new.com"),
		}}
		cmp := rankdiff.NewComparator(src)

		Convey("When comparing the two dates", func() {
			changes, err := cmp.Changes(context.Background(), "GB", "2025-07-20", "2025-07-27", 100)

			Convey("Then every domain from either side is reported once", func() {
				So(err, ShouldBeNil)
				So(changes, ShouldHaveLength, 5)
			})

			Convey("And the largest absolute movement comes first", func() {
				So(err, ShouldBeNil)
				// c.com moved 3 -> 1 (delta +2), a.com 1 -> 2 (-1), b.com 2 -> 3 (-1).
				So(changes[0].Domain, ShouldEqual, "c.com")
				So(*changes[0].Delta, ShouldEqual, 2)
				// Tie between a.com and b.com broken by domain name.
				So(changes[1].Domain, ShouldEqual, "a.com")
				So(*changes[1].Delta, ShouldEqual, -1)
				So(changes[2].Domain, ShouldEqual, "b.com")
			})

			Convey("And entrants and drop-outs carry no delta", func() {
				So(err, ShouldBeNil)
				byDomain := map[string]rankdiff.Change{}
				for _, ch := range changes {
					byDomain[ch.Domain] = ch
				}
				So(byDomain["new.com"].Status, ShouldEqual, rankdiff.StatusNewEntrant)
				So(byDomain["new.com"].Delta, ShouldBeNil)
				So(byDomain["x.com"].Status, ShouldEqual, rankdiff.StatusDroppedOut)
				So(byDomain["x.com"].Delta, ShouldBeNil)
			})
		})

		Convey("When swapping the two dates", func() {
			forward, err1 := cmp.Changes(context.Background(), "GB", "2025-07-20", "2025-07-27", 100)
			backward, err2 := cmp.Changes(context.Background(), "GB", "2025-07-27", "2025-07-20", 100)

			Convey("Then deltas negate and entrant/drop-out roles swap", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				back := map[string]rankdiff.Change{}
				for _, ch := range backward {
					back[ch.Domain] = ch
				}
				for _, ch := range forward {
					mirror := back[ch.Domain]
					switch ch.Status {
					case rankdiff.StatusMoved:
						So(mirror.Status, ShouldEqual, rankdiff.StatusMoved)
						So(*mirror.Delta, ShouldEqual, -*ch.Delta)
					case rankdiff.StatusNewEntrant:
						So(mirror.Status, ShouldEqual, rankdiff.StatusDroppedOut)
					case rankdiff.StatusDroppedOut:
						So(mirror.Status, ShouldEqual, rankdiff.StatusNewEntrant)
					}
				}
			})
		})

		Convey("When a cutoff hides deeper ranks", func() {
			changes, err := cmp.Changes(context.Background(), "GB", "2025-07-20", "2025-07-27", 2)

			Convey("Then only domains inside the cutoff participate", func() {
				So(err, ShouldBeNil)
				for _, ch := range changes {
					So(ch.Domain, ShouldNotEqual, "new.com")
					So(ch.Domain, ShouldNotEqual, "x.com")
				}
			})
		})
	})

	Convey("Given a date without a snapshot", t, func() {
		src := &fakeSnapshots{snapshots: map[string][]model.DomainRankEntry{
			"2025-07-20": snapshot("GB", "2025-07-20", "a.com"),
		}}
		cmp := rankdiff.NewComparator(src)

		Convey("When comparing against the missing date", func() {
			_, err := cmp.Changes(context.Background(), "GB", "2025-07-20", "2025-07-21", 100)

			Convey("Then it fails with the no-snapshot kind", func() {
				So(errors.Is(err, rankdiff.ErrNoSnapshot), ShouldBeTrue)
			})
		})
	})

	Convey("Given invalid arguments", t, func() {
		cmp := rankdiff.NewComparator(&fakeSnapshots{})

		Convey("When the limit is non-positive", func() {
			_, err := cmp.Changes(context.Background(), "GB", "2025-07-20", "2025-07-21", 0)
			So(err, ShouldNotBeNil)
		})

		Convey("When a date is malformed", func() {
			_, err := cmp.Changes(context.Background(), "GB", "20-07-2025", "2025-07-21", 10)
			So(errors.Is(err, model.ErrInvalidDate), ShouldBeTrue)
		})

		Convey("When the country is malformed", func() {
			_, err := cmp.Changes(context.Background(), "GBR", "2025-07-20", "2025-07-21", 10)
			So(errors.Is(err, model.ErrInvalidCountry), ShouldBeTrue)
		})
	})
}
