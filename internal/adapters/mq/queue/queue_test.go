package queue

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/netshift/netshift/internal/adapters/ingest"
)

func TestInMemoryQueue(t *testing.T) {
	Convey("Given an in-memory job queue", t, func() {
		ctx := context.Background()

		Convey("When enqueuing within capacity", func() {
			q := NewInMemoryQueue(WithCapacity(2))
			defer q.Close()

			ok1 := q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB"))
			ok2 := q.Enqueue(ctx, ingest.NewJob(ingest.KindBots, "GB"))

			Convey("Then both jobs should be accepted", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the queue is full", func() {
			q := NewInMemoryQueue(WithCapacity(1))
			defer q.Close()

			So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeTrue)

			Convey("Then further enqueues should be rejected", func() {
				So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeFalse)
			})
		})

		Convey("When dequeuing", func() {
			q := NewInMemoryQueue(WithCapacity(4))

			job := ingest.NewJob(ingest.KindTop, "GB")
			So(q.Enqueue(ctx, job), ShouldBeTrue)

			Convey("Then the job should arrive on the channel", func() {
				select {
				case got := <-q.Dequeue(ctx):
					So(got.ID, ShouldEqual, job.ID)
					So(got.Kind, ShouldEqual, ingest.KindTop)
				case <-time.After(time.Second):
					So("timeout", ShouldBeEmpty)
				}
				q.Close()
			})
		})

		Convey("When the queue is closed", func() {
			q := NewInMemoryQueue(WithCapacity(4))
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueues should be rejected and the channel closed", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeFalse)

				_, open := <-q.Dequeue(ctx)
				So(open, ShouldBeFalse)
			})

			Convey("Then closing again should be a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When jobs are queued before close", func() {
			q := NewInMemoryQueue(WithCapacity(4))
			So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeTrue)
			So(q.Enqueue(ctx, ingest.NewJob(ingest.KindOONI, "GB")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then the channel should drain before closing", func() {
				ch := q.Dequeue(ctx)
				var drained int
				for range ch {
					drained++
				}
				So(drained, ShouldEqual, 2)
			})
		})
	})
}
