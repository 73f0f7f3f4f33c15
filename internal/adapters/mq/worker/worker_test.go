package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/netshift/netshift/internal/adapters/ingest"
	"github.com/netshift/netshift/internal/adapters/mq/queue"
	"github.com/netshift/netshift/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// recordingRunner collects the jobs it was handed.
type recordingRunner struct {
	mu   sync.Mutex
	jobs []Job
	err  error
}

func (r *recordingRunner) Run(ctx context.Context, job Job) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return 1, r.err
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestWorker(t *testing.T) {
	Convey("Given a worker over a job queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		runner := &recordingRunner{}

		Convey("When jobs are enqueued", func() {
			w := NewInMemoryWorker(q, runner)
			go w.Run(ctx)

			So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeTrue)
			So(q.Enqueue(ctx, ingest.NewJob(ingest.KindBots, "GB")), ShouldBeTrue)

			Convey("Then the runner should process them", func() {
				So(waitFor(func() bool { return runner.count() == 2 }), ShouldBeTrue)
			})
		})

		Convey("When the runner fails", func() {
			runner.err = errors.New("upstream down")
			w := NewInMemoryWorker(q, runner)
			go w.Run(ctx)

			So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeTrue)
			So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeTrue)

			Convey("Then the worker should keep consuming", func() {
				So(waitFor(func() bool { return runner.count() == 2 }), ShouldBeTrue)
			})
		})

		Convey("When the worker is shut down", func() {
			w := NewInMemoryWorker(q, runner)
			go w.Run(ctx)

			Convey("Then Shutdown should return promptly", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(ctx, time.Second)
				defer shutdownCancel()
				So(w.Shutdown(shutdownCtx), ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(32))
		runner := &recordingRunner{}

		Convey("When started with multiple workers", func() {
			pool := NewPool(4, q, runner)
			So(pool.Size(), ShouldEqual, 4)
			pool.Start(ctx)

			for i := 0; i < 10; i++ {
				So(q.Enqueue(ctx, ingest.NewJob(ingest.KindOONI, "GB")), ShouldBeTrue)
			}

			Convey("Then all jobs should be processed", func() {
				So(waitFor(func() bool { return runner.count() == 10 }), ShouldBeTrue)
			})

			Convey("Then Shutdown should drain and close the queue", func() {
				So(pool.Shutdown(ctx), ShouldBeNil)
				So(q.IsClosed(), ShouldBeTrue)
			})
		})

		Convey("When the pool is stopped without closing the queue", func() {
			pool := NewPool(2, q, runner)
			pool.Start(ctx)
			pool.Stop()

			Convey("Then every worker should have exited", func() {
				for _, w := range pool.workers {
					select {
					case <-w.done:
					case <-time.After(time.Second):
						t.Fatal("worker still running after Stop")
					}
				}
			})

			Convey("Then later jobs should not be processed", func() {
				So(q.Enqueue(ctx, ingest.NewJob(ingest.KindHTTP, "GB")), ShouldBeTrue)
				time.Sleep(20 * time.Millisecond)
				So(runner.count(), ShouldEqual, 0)
			})
		})

		Convey("When created with a non-positive count", func() {
			pool := NewPool(0, q, runner)

			Convey("Then it should default to the CPU count", func() {
				So(pool.Size(), ShouldBeGreaterThan, 0)
			})
		})
	})
}
