// Package broadcast fans computed snapshots out to live subscribers.
//
// Delivery is latest-wins: every subscription buffers at most a few
// snapshots, and when a subscriber falls behind the oldest pending snapshot
// is dropped in favour of the new one. Publishers never block.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/pkg/metrics"
)

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("broadcast hub closed")

const defaultBuffer = 1

// Subscription receives the snapshots of one scope.
type Subscription struct {
	id    string
	scope string
	ch    chan model.Snapshot
	done  chan struct{}
	hub   *Hub
	once  sync.Once
}

// C returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan model.Snapshot { return s.ch }

// Done is closed when the subscription ends.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// ID identifies the subscription in logs.
func (s *Subscription) ID() string { return s.id }

// Scope returns the subscribed scope id.
func (s *Subscription) Scope() string { return s.scope }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub tracks subscriptions per scope.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	count  int
	buffer int
	closed bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets how many undelivered snapshots a subscription keeps.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: defaultBuffer}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers interest in scopeID. The subscription ends on Close,
// on ctx cancellation, or when the hub closes.
func (h *Hub) Subscribe(ctx context.Context, scopeID string) (*Subscription, error) {
	s := &Subscription{
		id:    uuid.NewString(),
		scope: scopeID,
		ch:    make(chan model.Snapshot, h.buffer),
		done:  make(chan struct{}),
		hub:   h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	if h.subs[scopeID] == nil {
		h.subs[scopeID] = make(map[*Subscription]struct{})
	}
	h.subs[scopeID][s] = struct{}{}
	h.count++
	metrics.UpdateStreamSubscribers(h.count)
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

// Publish hands snap to every subscriber of its scope without blocking.
func (h *Hub) Publish(snap model.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs[snap.ScopeID] {
		for {
			select {
			case s.ch <- snap:
			default:
				// Full: drop the oldest and retry. The consumer can only make
				// room, so this terminates.
				select {
				case <-s.ch:
					metrics.RecordStreamDropped()
				default:
				}
				continue
			}
			break
		}
	}
}

// Count returns the number of open subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Close ends every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for scope, set := range h.subs {
		for s := range set {
			h.end(s)
		}
		delete(h.subs, scope)
	}
	h.count = 0
	metrics.UpdateStreamSubscribers(0)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.scope]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.scope)
	}
	h.count--
	metrics.UpdateStreamSubscribers(h.count)
	h.end(s)
}

// end closes the channels of s. Caller holds h.mu, so no Publish is sending.
func (h *Hub) end(s *Subscription) {
	s.once.Do(func() {
		close(s.done)
		close(s.ch)
	})
}
