// Package dedupe coalesces recompute requests so that each scope has at most
// one job waiting in the queue.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultMaxSize = 10000
	defaultTTL     = 5 * time.Minute
)

// Deduper tracks keys (scope ids) that already have pending work.
type Deduper interface {
	// SeenAndRecord atomically checks whether key is pending and marks it if not.
	// Returns true if key was already pending, false if it was newly marked.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord clears the mark. Workers call it when they pick a job up, and
	// producers call it when the enqueue that followed the mark failed.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper keeps pending marks in a map. Marks older than ttl are
// treated as absent so a job lost to a crash cannot block its scope forever.
// When maxSize is reached the oldest mark is evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	pending map[string]time.Time
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pending = make(map[string]time.Time)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.pending[key]; ok {
		if d.ttl <= 0 || now.Sub(at) < d.ttl {
			return true
		}
	}

	if _, ok := d.pending[key]; !ok && d.maxSize > 0 && len(d.pending) >= d.maxSize {
		d.evict(now)
	}
	d.pending[key] = now
	d.size.Store(int64(len(d.pending)))
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.pending, key)
	d.size.Store(int64(len(d.pending)))
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// evict drops expired marks, or the oldest mark when none have expired.
// Caller holds d.mu.
func (d *inMemoryDeduper) evict(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		dropped   bool
	)
	for k, at := range d.pending {
		if d.ttl > 0 && now.Sub(at) >= d.ttl {
			delete(d.pending, k)
			dropped = true
			continue
		}
		if oldestKey == "" || at.Before(oldestAt) {
			oldestKey, oldestAt = k, at
		}
	}
	if !dropped && oldestKey != "" {
		delete(d.pending, oldestKey)
	}
}
