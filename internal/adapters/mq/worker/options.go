package worker

import (
	"time"

	"github.com/okian/teampulse/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithBroadcaster pushes every published snapshot to b.
func WithBroadcaster(b Broadcaster) Option {
	return func(w *InMemoryWorker) {
		w.broadcaster = b
	}
}

// WithReleaser clears the pending mark of a scope when its job is picked up.
func WithReleaser(r Releaser) Option {
	return func(w *InMemoryWorker) {
		w.releaser = r
	}
}

// WithClock replaces the time source used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(w *InMemoryWorker) {
		if now != nil {
			w.now = now
		}
	}
}
