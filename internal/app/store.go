package service

import (
	"context"
	"fmt"

	"github.com/okian/teampulse/internal/adapters/repository"
	"github.com/okian/teampulse/internal/config"
	"github.com/okian/teampulse/internal/domain/model"
	"github.com/okian/teampulse/pkg/logger"
	"github.com/okian/teampulse/pkg/metrics"
)

// OpenStore opens the document store selected by cfg. Documents that fail
// validation on read are counted and logged, then skipped.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	hook := repository.WithInvalidDocumentHook(func(collection, id string, err error) {
		metrics.RecordInvalidDocument(collection)
		log.Warn(ctx, "skipping invalid document",
			logger.String("collection", collection), logger.String("id", id), logger.Error(err))
	})
	switch cfg.Storage {
	case config.StorageMemory:
		return repository.NewMemoryStore(), nil
	case config.StorageSQLite:
		store, err := repository.OpenSQLite(ctx, cfg.DBPath, hook)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage %q", config.ErrInvalidConfig, cfg.Storage)
	}
}

// UpsertScope stores a scope.
func (s *Service) UpsertScope(ctx context.Context, scope model.Scope) error {
	return s.store.UpsertScope(ctx, scope)
}

// UpsertMember adds or replaces a roster member of scopeID.
func (s *Service) UpsertMember(ctx context.Context, scopeID string, member model.Member) error {
	return s.store.UpsertMember(ctx, scopeID, member)
}

// UpsertTask stores a task record.
func (s *Service) UpsertTask(ctx context.Context, task model.TaskRecord) error {
	return s.store.UpsertTask(ctx, task)
}

// UpsertSubmission stores a submission record.
func (s *Service) UpsertSubmission(ctx context.Context, sub model.SubmissionRecord) error {
	return s.store.UpsertSubmission(ctx, sub)
}

// Scope returns one scope.
func (s *Service) Scope(ctx context.Context, scopeID string) (model.Scope, error) {
	return s.store.Scope(ctx, scopeID)
}

// Scopes lists every scope.
func (s *Service) Scopes(ctx context.Context) ([]model.Scope, error) {
	return s.store.Scopes(ctx)
}

// Roster returns the members of scopeID.
func (s *Service) Roster(ctx context.Context, scopeID string) ([]model.Member, error) {
	return s.store.Roster(ctx, scopeID)
}

// TasksByScope returns the task records of scopeID.
func (s *Service) TasksByScope(ctx context.Context, scopeID string) ([]model.TaskRecord, error) {
	return s.store.TasksByScope(ctx, scopeID)
}

// TasksByAssignee returns the tasks assigned to a member across scopes.
func (s *Service) TasksByAssignee(ctx context.Context, assigneeID string) ([]model.TaskRecord, error) {
	return s.store.TasksByAssignee(ctx, assigneeID)
}

// SubmissionsByScope returns the submission records of scopeID.
func (s *Service) SubmissionsByScope(ctx context.Context, scopeID string) ([]model.SubmissionRecord, error) {
	return s.store.SubmissionsByScope(ctx, scopeID)
}

// SubmissionsByUser returns a member's submissions across scopes.
func (s *Service) SubmissionsByUser(ctx context.Context, userID string) ([]model.SubmissionRecord, error) {
	return s.store.SubmissionsByUser(ctx, userID)
}
