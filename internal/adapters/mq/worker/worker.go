// Package worker rebuilds scope snapshots off the recompute queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/teampulse/internal/adapters/mq/queue"
	"github.com/okian/teampulse/internal/adapters/repository"
	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/internal/domain/scoring"
	"github.com/okian/teampulse/pkg/logger"
	"github.com/okian/teampulse/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Job is what workers read off the queue.
type Job = queue.Job

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Ranker stores a computed snapshot for ranking queries.
type Ranker interface {
	Publish(ctx context.Context, snap model.Snapshot) (bool, error)
}

// Broadcaster pushes a snapshot to live subscribers.
type Broadcaster interface {
	Publish(snap model.Snapshot)
}

// Releaser clears the pending mark of a scope.
type Releaser interface {
	Unrecord(ctx context.Context, key string)
}

// Worker processes recompute jobs.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	source      repository.Reader
	ranker      Ranker
	broadcaster Broadcaster
	releaser    Releaser
	name        string
	now         func() time.Time

	// shared with the pool
	active    *atomic.Int64
	processed *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, source repository.Reader, ranker Ranker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		source:    source,
		ranker:    ranker,
		name:      "worker",
		now:       time.Now,
		active:    new(atomic.Int64),
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "recompute failed",
					logger.String("scope", job.ScopeID),
					logger.String("job", job.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process runs one job synchronously.
func (w *InMemoryWorker) Process(ctx context.Context, job Job) error {
	return w.process(ctx, job)
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) error {
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	// Release first: records written while this job runs must trigger a new one.
	if w.releaser != nil {
		w.releaser.Unrecord(ctx, job.ScopeID)
	}

	// Stamp before reading so a slower job over older data loses the
	// stale check against a newer one.
	computedAt := w.now().UTC()
	aggStart := time.Now()
	ds, err := repository.LoadDataset(ctx, w.source, job.ScopeID)
	if err != nil {
		metrics.RecordWorkerError()
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordErrorByComponent("worker", "scope_not_found")
		} else {
			metrics.RecordErrorByComponent("worker", "load_error")
		}
		return fmt.Errorf("load scope %s: %w", job.ScopeID, err)
	}
	perfs := scoring.Aggregate(ds.Members, ds.Tasks, ds.Submissions)
	metrics.RecordAggregationLatency(float64(time.Since(aggStart).Microseconds()) / 1000)
	metrics.RecordMembersScored(len(perfs))

	snap := model.Snapshot{ScopeID: job.ScopeID, Members: perfs, ComputedAt: computedAt}
	published, err := w.ranker.Publish(ctx, snap)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "publish_error")
		return fmt.Errorf("publish scope %s: %w", job.ScopeID, err)
	}
	if published && w.broadcaster != nil {
		w.broadcaster.Publish(snap)
	}

	w.processed.Add(1)
	metrics.RecordRecompute(job.Reason)
	w.logger.Debug(ctx, "scope recomputed",
		logger.String("scope", job.ScopeID),
		logger.String("reason", job.Reason),
		logger.Int("members", len(perfs)),
		logger.Bool("published", published),
	)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	active    *atomic.Int64
	processed *atomic.Int64
	logger    logger.Logger
}

// NewPool creates workerCount workers. Options apply to every worker.
func NewPool(workerCount int, q Queue, source repository.Reader, ranker Ranker, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers:   make([]*InMemoryWorker, workerCount),
		queue:     q,
		active:    new(atomic.Int64),
		processed: new(atomic.Int64),
	}
	shared := func(w *InMemoryWorker) {
		w.active = p.active
		w.processed = p.processed
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)), shared)
		p.workers[i] = NewInMemoryWorker(q, source, ranker, workerOpts...)
	}
	p.logger = p.workers[0].logger
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns the number of workers busy with a job.
func (p *Pool) Active() int64 { return p.active.Load() }

// Processed returns the number of jobs completed successfully.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue and lets the workers drain it. Workers still busy
// when ctx (or the pool timeout) expires are told to stop.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
