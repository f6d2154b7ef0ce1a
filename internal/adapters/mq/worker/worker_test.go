package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/teampulse/internal/adapters/leaderboard"
	queue "github.com/okian/teampulse/internal/adapters/mq/queue"
	worker "github.com/okian/teampulse/internal/adapters/mq/worker"
	"github.com/okian/teampulse/internal/adapters/repository"
	"github.com/okian/teampulse/internal/domain/dedupe"
	model "github.com/okian/teampulse/internal/domain/model"
	logging "github.com/okian/teampulse/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockBroadcaster struct {
	mu    sync.Mutex
	snaps []model.Snapshot
}

func (m *mockBroadcaster) Publish(snap model.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, snap)
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps)
}

type failingRanker struct{}

func (failingRanker) Publish(context.Context, model.Snapshot) (bool, error) {
	return false, errors.New("boom")
}

func seed(ctx context.Context, s repository.Store) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	upd := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	_ = s.UpsertScope(ctx, model.Scope{ID: "team-1"})
	_ = s.UpsertMember(ctx, "team-1", model.Member{ID: "u1", Name: "Ada", Role: model.RoleSales})
	_ = s.UpsertMember(ctx, "team-1", model.Member{ID: "u2", Name: "Bo", Role: model.RoleMarketing})
	_ = s.UpsertTask(ctx, model.TaskRecord{ID: "t1", ScopeID: "team-1", AssigneeID: "u1", Status: model.StatusDone, DueDate: &due, UpdatedAt: &upd})
	_ = s.UpsertTask(ctx, model.TaskRecord{ID: "t2", ScopeID: "team-1", AssigneeID: "u1", Status: model.StatusToDo})
	_ = s.UpsertSubmission(ctx, model.SubmissionRecord{ID: "s1", ScopeID: "team-1", UserID: "u1", Rating: 4, SubmittedAt: upd})
}

func TestWorkerProcess(t *testing.T) {
	convey.Convey("Given a worker over a seeded store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seed(ctx, store)
		board := leaderboard.New()
		hub := &mockBroadcaster{}
		marks := dedupe.NewInMemoryDeduper()
		q := queue.NewInMemoryQueue(queue.WithCapacity(4))

		w := worker.NewInMemoryWorker(q, store, board,
			worker.WithLogger(logging.Nop()),
			worker.WithBroadcaster(hub),
			worker.WithReleaser(marks),
		)

		convey.Convey("When a recompute job is processed", func() {
			marks.SeenAndRecord(ctx, "team-1")
			err := w.Process(ctx, worker.Job{ID: "j1", ScopeID: "team-1", Reason: "manual"})

			convey.Convey("Then the ranking and subscribers see the new snapshot", func() {
				convey.So(err, convey.ShouldBeNil)
				top, err := board.TopN(ctx, "team-1", 10)
				convey.So(err, convey.ShouldBeNil)
				convey.So(top, convey.ShouldHaveLength, 2)
				convey.So(top[0].MemberID, convey.ShouldEqual, "u1")
				convey.So(top[0].OverallScore, convey.ShouldAlmostEqual, 74)
				convey.So(hub.count(), convey.ShouldEqual, 1)
			})

			convey.Convey("And the pending mark is released", func() {
				convey.So(marks.Size(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the scope does not exist", func() {
			err := w.Process(ctx, worker.Job{ID: "j2", ScopeID: "ghost"})

			convey.Convey("Then it reports not found and publishes nothing", func() {
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
				convey.So(hub.count(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the ranker fails", func() {
			failing := worker.NewInMemoryWorker(q, store, failingRanker{},
				worker.WithLogger(logging.Nop()), worker.WithBroadcaster(hub))
			err := failing.Process(ctx, worker.Job{ID: "j3", ScopeID: "team-1"})

			convey.Convey("Then the error surfaces and nothing is broadcast", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(hub.count(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a running pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		store := repository.NewMemoryStore()
		seed(ctx, store)
		board := leaderboard.New()
		hub := &mockBroadcaster{}
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))

		pool := worker.NewPool(3, q, store, board,
			worker.WithLogger(logging.Nop()),
			worker.WithBroadcaster(hub),
		)
		pool.Start(ctx)

		convey.Convey("When jobs are enqueued and the pool shuts down", func() {
			for i := 0; i < 5; i++ {
				convey.So(q.Enqueue(ctx, worker.Job{ScopeID: "team-1", Reason: "test"}), convey.ShouldBeTrue)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every queued job is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(pool.Size(), convey.ShouldEqual, 3)
				convey.So(pool.Processed(), convey.ShouldEqual, 5)
				convey.So(pool.Active(), convey.ShouldEqual, 0)
				convey.So(board.Count(ctx), convey.ShouldEqual, 1)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given an idle running worker", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, repository.NewMemoryStore(), leaderboard.New(), worker.WithLogger(logging.Nop()))
		go w.Run(ctx)

		convey.Convey("When it is shut down", func() {
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.Convey("Then it stops promptly and a second call is harmless", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

// stalledReader holds the first submissions lookup until released, after the
// job has already read its tasks.
type stalledReader struct {
	*repository.MemoryStore
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (r *stalledReader) SubmissionsByScope(ctx context.Context, scopeID string) ([]model.SubmissionRecord, error) {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.gate
	}
	return r.MemoryStore.SubmissionsByScope(ctx, scopeID)
}

func TestWorkerOverlappingJobs(t *testing.T) {
	convey.Convey("Given a job stalled after reading old tasks", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seed(ctx, store)
		reader := &stalledReader{MemoryStore: store, entered: make(chan struct{}), gate: make(chan struct{})}
		board := leaderboard.New()
		hub := &mockBroadcaster{}
		q := queue.NewInMemoryQueue()

		var tick atomic.Int64
		clock := func() time.Time {
			return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(tick.Add(1)) * time.Second)
		}
		w := worker.NewInMemoryWorker(q, reader, board,
			worker.WithLogger(logging.Nop()),
			worker.WithBroadcaster(hub),
			worker.WithClock(clock),
		)

		slow := make(chan error, 1)
		go func() { slow <- w.Process(ctx, worker.Job{ID: "old", ScopeID: "team-1"}) }()
		<-reader.entered

		convey.Convey("When a newer job publishes before it finishes", func() {
			convey.So(store.UpsertTask(ctx, model.TaskRecord{ID: "t2", ScopeID: "team-1", AssigneeID: "u1", Status: model.StatusDone}), convey.ShouldBeNil)
			convey.So(w.Process(ctx, worker.Job{ID: "new", ScopeID: "team-1"}), convey.ShouldBeNil)
			close(reader.gate)
			convey.So(<-slow, convey.ShouldBeNil)

			convey.Convey("Then the older read does not replace the newer ranking", func() {
				entry, err := board.Rank(ctx, "team-1", "u1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(entry.OverallScore, convey.ShouldAlmostEqual, 94)
				convey.So(hub.count(), convey.ShouldEqual, 1)
			})
		})
	})
}
