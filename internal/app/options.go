package service

import (
	"time"

	"github.com/okian/teampulse/internal/adapters/repository"
	"github.com/okian/teampulse/internal/config"
	"github.com/okian/teampulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the document store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the number of pending recompute marks.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxLeaderboardLimit caps TopN.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithStreamBuffer sets the per-subscriber snapshot buffer.
func WithStreamBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.streamBuffer = n
		}
	}
}

// WithRecomputeInterval enables a periodic recompute of every scope. Zero
// disables it.
func WithRecomputeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.recomputeInterval = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source stamped on jobs and snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithConfig applies the pipeline settings of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		for _, opt := range []Option{
			WithWorkerCount(cfg.WorkerCount),
			WithQueueSize(cfg.QueueSize),
			WithDedupeSize(cfg.DedupeSize),
			WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
			WithStreamBuffer(cfg.StreamBuffer),
			WithRecomputeInterval(cfg.RecomputeInterval),
		} {
			opt(s)
		}
	}
}
