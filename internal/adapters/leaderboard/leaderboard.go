// Package leaderboard keeps the latest published performance snapshot of
// every scope and answers ranking queries against it.
package leaderboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/internal/domain/types"
	"github.com/okian/teampulse/pkg/metrics"
)

const defaultMaxLimit = 1000

// scoreFP is a score rounded to hundredths. Ties are decided on it so that
// float noise from the weighting does not split equal scores.
type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	return scoreFP(math.Round(x * 100))
}

// board is an immutable ranked view of one snapshot.
type board struct {
	snapshot model.Snapshot
	entries  []types.Entry
	byMember map[string]int
}

// Store holds one board per scope. Boards are replaced wholesale on Publish.
type Store struct {
	mu       sync.RWMutex
	boards   map[string]*board
	maxLimit int
}

// New creates an empty leaderboard store.
func New(opts ...Option) *Store {
	s := &Store{
		boards:   make(map[string]*board),
		maxLimit: defaultMaxLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxLimit returns the largest limit TopN honours.
func (s *Store) MaxLimit() int { return s.maxLimit }

// Publish ranks snap and makes it the current board of its scope. A snapshot
// computed before the current one is ignored and Publish returns false.
func (s *Store) Publish(ctx context.Context, snap model.Snapshot) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if snap.ScopeID == "" {
		return false, ErrEmptyScope
	}
	b := build(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.boards[snap.ScopeID]; ok && snap.ComputedAt.Before(cur.snapshot.ComputedAt) {
		return false, nil
	}
	s.boards[snap.ScopeID] = b
	metrics.UpdateLeaderboardScopes(len(s.boards))
	return true, nil
}

// TopN returns the best n entries of a scope. n above the configured maximum
// is clamped.
func (s *Store) TopN(ctx context.Context, scopeID string, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	if n > s.maxLimit {
		n = s.maxLimit
	}
	b, err := s.board(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if n > len(b.entries) {
		n = len(b.entries)
	}
	out := make([]types.Entry, n)
	copy(out, b.entries[:n])
	return out, nil
}

// Rank returns the entry of one member.
func (s *Store) Rank(ctx context.Context, scopeID, memberID string) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	b, err := s.board(ctx, scopeID)
	if err != nil {
		return types.Entry{}, err
	}
	i, ok := b.byMember[memberID]
	if !ok {
		return types.Entry{}, fmt.Errorf("member %q in scope %q: %w", memberID, scopeID, ErrNotFound)
	}
	return b.entries[i], nil
}

// Snapshot returns the snapshot the current board of a scope was built from.
func (s *Store) Snapshot(ctx context.Context, scopeID string) (model.Snapshot, error) {
	b, err := s.board(ctx, scopeID)
	if err != nil {
		return model.Snapshot{}, err
	}
	return b.snapshot, nil
}

// Count returns the number of scopes with a published board.
func (s *Store) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards)
}

func (s *Store) board(ctx context.Context, scopeID string) (*board, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	b, ok := s.boards[scopeID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("scope %q: %w", scopeID, ErrNotFound)
	}
	return b, nil
}

// build ranks the members of snap. A member id listed twice keeps its first row.
func build(snap model.Snapshot) *board {
	entries := make([]types.Entry, 0, len(snap.Members))
	seen := make(map[string]struct{}, len(snap.Members))
	for _, p := range snap.Members {
		if _, dup := seen[p.MemberID]; dup {
			continue
		}
		seen[p.MemberID] = struct{}{}
		entries = append(entries, types.NewEntry(0, p))
	}
	sortEntries(entries)
	assignRanksWithTies(entries)

	byMember := make(map[string]int, len(entries))
	for i, e := range entries {
		byMember[e.MemberID] = i
	}
	return &board{snapshot: snap, entries: entries, byMember: byMember}
}

// sortEntries orders by score desc, then member id asc.
func sortEntries(entries []types.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := toFixedPoint(entries[i].OverallScore), toFixedPoint(entries[j].OverallScore)
		if a != b {
			return a > b
		}
		return entries[i].MemberID < entries[j].MemberID
	})
}

// assignRanksWithTies gives equal scores the same rank; the next distinct
// score gets the next consecutive rank.
func assignRanksWithTies(entries []types.Entry) {
	rank := 0
	var prev scoreFP
	for i := range entries {
		cur := toFixedPoint(entries[i].OverallScore)
		if i == 0 || cur != prev {
			rank++
			prev = cur
		}
		entries[i].Rank = rank
	}
}
