package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/teampulse/internal/domain/model"
)

// docKey identifies a document within its collection.
type docKey struct {
	scopeID string
	id      string
}

// collection keeps documents in first-insertion order; upserts replace in place.
type collection[T any] struct {
	index map[docKey]int
	items []T
	keys  []docKey
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{index: make(map[docKey]int)}
}

func (c *collection[T]) put(k docKey, v T) {
	if i, ok := c.index[k]; ok {
		c.items[i] = v
		return
	}
	c.index[k] = len(c.items)
	c.items = append(c.items, v)
	c.keys = append(c.keys, k)
}

func (c *collection[T]) filter(keep func(docKey, T) bool) []T {
	out := make([]T, 0)
	for i, v := range c.items {
		if keep(c.keys[i], v) {
			out = append(out, v)
		}
	}
	return out
}

// MemoryStore is an in-process Store. Records are validated on write, so reads
// never skip anything.
type MemoryStore struct {
	mu          sync.RWMutex
	closed      bool
	scopes      *collection[model.Scope]
	members     *collection[model.Member]
	tasks       *collection[model.TaskRecord]
	submissions *collection[model.SubmissionRecord]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes:      newCollection[model.Scope](),
		members:     newCollection[model.Member](),
		tasks:       newCollection[model.TaskRecord](),
		submissions: newCollection[model.SubmissionRecord](),
	}
}

// Close marks the store closed; later calls return ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemoryStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// hasScope requires s.mu.
func (s *MemoryStore) hasScope(scopeID string) error {
	if _, ok := s.scopes.index[docKey{scopeID, scopeID}]; !ok {
		return fmt.Errorf("scope %q: %w", scopeID, ErrNotFound)
	}
	return nil
}

// UpsertScope implements Writer.
func (s *MemoryStore) UpsertScope(ctx context.Context, scope model.Scope) error {
	scope.Normalize()
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	s.scopes.put(docKey{scope.ID, scope.ID}, scope)
	return nil
}

// UpsertMember implements Writer.
func (s *MemoryStore) UpsertMember(ctx context.Context, scopeID string, member model.Member) error {
	if err := member.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.hasScope(scopeID); err != nil {
		return err
	}
	s.members.put(docKey{scopeID, member.ID}, member)
	return nil
}

// UpsertTask implements Writer.
func (s *MemoryStore) UpsertTask(ctx context.Context, task model.TaskRecord) error {
	task.Normalize()
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.hasScope(task.ScopeID); err != nil {
		return err
	}
	s.tasks.put(docKey{task.ScopeID, task.ID}, task)
	return nil
}

// UpsertSubmission implements Writer.
func (s *MemoryStore) UpsertSubmission(ctx context.Context, sub model.SubmissionRecord) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}
	if err := s.hasScope(sub.ScopeID); err != nil {
		return err
	}
	s.submissions.put(docKey{sub.ScopeID, sub.ID}, sub)
	return nil
}

// Scope implements RosterReader.
func (s *MemoryStore) Scope(ctx context.Context, scopeID string) (model.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return model.Scope{}, err
	}
	i, ok := s.scopes.index[docKey{scopeID, scopeID}]
	if !ok {
		return model.Scope{}, fmt.Errorf("scope %q: %w", scopeID, ErrNotFound)
	}
	return s.scopes.items[i], nil
}

// Scopes implements RosterReader.
func (s *MemoryStore) Scopes(ctx context.Context) ([]model.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.scopes.filter(func(docKey, model.Scope) bool { return true }), nil
}

// Roster implements RosterReader.
func (s *MemoryStore) Roster(ctx context.Context, scopeID string) ([]model.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	if err := s.hasScope(scopeID); err != nil {
		return nil, err
	}
	return s.members.filter(func(k docKey, _ model.Member) bool { return k.scopeID == scopeID }), nil
}

// TasksByScope implements TaskReader.
func (s *MemoryStore) TasksByScope(ctx context.Context, scopeID string) ([]model.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.tasks.filter(func(k docKey, _ model.TaskRecord) bool { return k.scopeID == scopeID }), nil
}

// TasksByAssignee implements TaskReader.
func (s *MemoryStore) TasksByAssignee(ctx context.Context, assigneeID string) ([]model.TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.tasks.filter(func(_ docKey, t model.TaskRecord) bool { return t.AssigneeID == assigneeID }), nil
}

// SubmissionsByScope implements SubmissionReader.
func (s *MemoryStore) SubmissionsByScope(ctx context.Context, scopeID string) ([]model.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.submissions.filter(func(k docKey, _ model.SubmissionRecord) bool { return k.scopeID == scopeID }), nil
}

// SubmissionsByUser implements SubmissionReader.
func (s *MemoryStore) SubmissionsByUser(ctx context.Context, userID string) ([]model.SubmissionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.submissions.filter(func(_ docKey, sub model.SubmissionRecord) bool { return sub.UserID == userID }), nil
}
