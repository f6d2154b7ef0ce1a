// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/teampulse/internal/adapters/leaderboard"
	"github.com/okian/teampulse/internal/adapters/mq/broadcast"
	"github.com/okian/teampulse/internal/adapters/mq/queue"
	"github.com/okian/teampulse/internal/adapters/mq/worker"
	"github.com/okian/teampulse/internal/adapters/repository"
	"github.com/okian/teampulse/internal/domain/dedupe"
	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/internal/domain/scoring"
	"github.com/okian/teampulse/internal/domain/types"
	"github.com/okian/teampulse/pkg/logger"
	"github.com/okian/teampulse/pkg/metrics"
)

// Recompute reasons.
const (
	ReasonStartup  = "startup"
	ReasonPeriodic = "periodic"
)

// ErrNotStarted is returned by operations that need the running pipeline.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies: it owns the document store, the
// recompute pipeline, the published leaderboards and the snapshot hub.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	pool    *worker.Pool
	board   *leaderboard.Store
	hub     *broadcast.Hub

	// Configuration
	workerCount       int
	queueSize         int
	dedupeSize        int
	maxLimit          int
	streamBuffer      int
	recomputeInterval time.Duration
	now               func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup

	logger logger.Logger
}

// New constructs a new Service with default configuration. Without
// WithStore the service keeps its records in memory.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 2,
		queueSize:    10_000,
		dedupeSize:   10_000,
		maxLimit:     100,
		streamBuffer: 1,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Start builds the pipeline, starts the workers and queues a recompute of
// every known scope so rankings exist right after boot.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting performance service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.board = leaderboard.New(leaderboard.WithMaxLimit(s.maxLimit))
	s.hub = broadcast.NewHub(broadcast.WithBuffer(s.streamBuffer))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.store, s.board,
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithBroadcaster(s.hub),
		worker.WithReleaser(s.deduper),
		worker.WithClock(s.now),
	)
	// Workers outlive the request context; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))
	s.stopCh = make(chan struct{})
	s.started = true

	if _, err := s.recomputeAll(ctx, ReasonStartup); err != nil {
		s.logger.Warn(ctx, "startup recompute incomplete", logger.Error(err))
	}
	if s.recomputeInterval > 0 {
		s.loopWG.Add(1)
		go s.refreshLoop(context.WithoutCancel(ctx), s.stopCh)
	}

	s.logger.Info(ctx, "performance service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Duration("recomputeInterval", s.recomputeInterval),
	)
	return nil
}

// Stop drains queued recomputes, ends every subscription and closes the
// store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping performance service...")
	s.loopWG.Wait()

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.hub.Close()
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	s.logger.Info(ctx, "performance service stopped")
	return errors.Join(errs...)
}

// RequestRecompute queues a recompute of scopeID. A scope with a job still
// waiting in the queue is not queued twice: the call reports false and the
// pending job covers the change. A full queue yields queue.ErrBackpressure.
func (s *Service) RequestRecompute(ctx context.Context, scopeID, reason string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}
	return s.requestLocked(ctx, scopeID, reason)
}

func (s *Service) requestLocked(ctx context.Context, scopeID, reason string) (bool, error) {
	if s.deduper.SeenAndRecord(ctx, scopeID) {
		metrics.RecordRecomputeCoalesced()
		s.logger.Debug(ctx, "recompute coalesced", logger.String("scope", scopeID), logger.String("reason", reason))
		return false, nil
	}
	job := queue.Job{ID: uuid.NewString(), ScopeID: scopeID, Reason: reason, RequestedAt: s.now()}
	if !s.queue.Enqueue(ctx, job) {
		// Release the mark so the next request can try again.
		s.deduper.Unrecord(ctx, scopeID)
		return false, fmt.Errorf("scope %q: %w", scopeID, queue.ErrBackpressure)
	}
	s.logger.Debug(ctx, "recompute queued",
		logger.String("scope", scopeID), logger.String("reason", reason), logger.String("job", job.ID))
	return true, nil
}

// RecomputeAll queues a recompute of every stored scope and returns how many
// jobs were queued.
func (s *Service) RecomputeAll(ctx context.Context, reason string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return 0, ErrNotStarted
	}
	return s.recomputeAll(ctx, reason)
}

func (s *Service) recomputeAll(ctx context.Context, reason string) (int, error) {
	scopes, err := s.store.Scopes(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scopes: %w", err)
	}
	queued := 0
	var errs []error
	for _, sc := range scopes {
		ok, err := s.requestLocked(ctx, sc.ID, reason)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			queued++
		}
	}
	return queued, errors.Join(errs...)
}

func (s *Service) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.loopWG.Done()
	ticker := time.NewTicker(s.recomputeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := s.RecomputeAll(ctx, ReasonPeriodic)
			if err != nil && !errors.Is(err, ErrNotStarted) {
				s.logger.Warn(ctx, "periodic recompute incomplete", logger.Int("queued", n), logger.Error(err))
			}
		}
	}
}

// Performance aggregates the current records of scopeID without going
// through the queue, so the result reflects every write made so far.
func (s *Service) Performance(ctx context.Context, scopeID string, order scoring.Order) (types.Performance, error) {
	ds, err := repository.LoadDataset(ctx, s.store, scopeID)
	if err != nil {
		return types.Performance{}, err
	}
	start := time.Now()
	rows := scoring.Aggregate(ds.Members, ds.Tasks, ds.Submissions)
	metrics.RecordAggregationLatency(float64(time.Since(start).Microseconds()) / 1000)
	order.Apply(rows)
	return types.NewPerformance(scopeID, rows), nil
}

// TopN returns the best n entries of the last published snapshot of scopeID.
func (s *Service) TopN(ctx context.Context, scopeID string, n int) ([]types.Entry, error) {
	b, err := s.leaderboard()
	if err != nil {
		return nil, err
	}
	return b.TopN(ctx, scopeID, n)
}

// Rank returns the leaderboard entry of memberID in scopeID.
func (s *Service) Rank(ctx context.Context, scopeID, memberID string) (types.Entry, error) {
	b, err := s.leaderboard()
	if err != nil {
		return types.Entry{}, err
	}
	return b.Rank(ctx, scopeID, memberID)
}

// Snapshot returns the last published snapshot of scopeID.
func (s *Service) Snapshot(ctx context.Context, scopeID string) (model.Snapshot, error) {
	b, err := s.leaderboard()
	if err != nil {
		return model.Snapshot{}, err
	}
	return b.Snapshot(ctx, scopeID)
}

// Subscribe streams every snapshot published for scopeID from now on.
func (s *Service) Subscribe(ctx context.Context, scopeID string) (*broadcast.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.hub.Subscribe(ctx, scopeID)
}

func (s *Service) leaderboard() (*leaderboard.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.board == nil {
		return nil, ErrNotStarted
	}
	return s.board, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"recomputeInterval": s.recomputeInterval.String(),
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["pendingRecomputes"] = s.deduper.Size()
		stats["rankedScopes"] = s.board.Count(ctx)
		stats["subscribers"] = s.hub.Count()
		stats["activeWorkers"] = s.pool.Active()
		stats["processedJobs"] = s.pool.Processed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateLeaderboardScopes(s.board.Count(ctx))
	}
	return stats
}
