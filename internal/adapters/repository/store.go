// Package repository stores scopes, rosters, tasks and submissions as JSON
// documents and reads them back as validated records.
package repository

import (
	"context"

	"github.com/okian/teampulse/internal/domain/model"
)

// Collections held in the document store.
const (
	CollectionScopes      = "scopes"
	CollectionMembers     = "members"
	CollectionTasks       = "tasks"
	CollectionSubmissions = "submissions"
)

// TaskReader queries task documents.
type TaskReader interface {
	// TasksByScope returns the tasks of a scope in insertion order.
	TasksByScope(ctx context.Context, scopeID string) ([]model.TaskRecord, error)
	// TasksByAssignee returns every task assigned to a member across scopes.
	TasksByAssignee(ctx context.Context, assigneeID string) ([]model.TaskRecord, error)
}

// SubmissionReader queries submission documents.
type SubmissionReader interface {
	SubmissionsByScope(ctx context.Context, scopeID string) ([]model.SubmissionRecord, error)
	SubmissionsByUser(ctx context.Context, userID string) ([]model.SubmissionRecord, error)
}

// RosterReader queries scopes and their members.
type RosterReader interface {
	// Scope returns ErrNotFound for unknown ids.
	Scope(ctx context.Context, scopeID string) (model.Scope, error)
	Scopes(ctx context.Context) ([]model.Scope, error)
	// Roster returns the members of a scope in insertion order, or ErrNotFound.
	Roster(ctx context.Context, scopeID string) ([]model.Member, error)
}

// Reader is everything the recompute path reads.
type Reader interface {
	TaskReader
	SubmissionReader
	RosterReader
}

// Writer upserts documents. Every write validates its record first and
// returns ErrInvalidDocument on failure. Writes into an unknown scope return
// ErrNotFound.
type Writer interface {
	UpsertScope(ctx context.Context, scope model.Scope) error
	UpsertMember(ctx context.Context, scopeID string, member model.Member) error
	UpsertTask(ctx context.Context, task model.TaskRecord) error
	UpsertSubmission(ctx context.Context, submission model.SubmissionRecord) error
}

// Store is the full document store.
type Store interface {
	Reader
	Writer
	Close() error
}

// Dataset is one materialized read of a scope.
type Dataset struct {
	Scope       model.Scope
	Members     []model.Member
	Tasks       []model.TaskRecord
	Submissions []model.SubmissionRecord
}

// LoadDataset reads the roster, tasks and submissions of a scope.
func LoadDataset(ctx context.Context, r Reader, scopeID string) (Dataset, error) {
	scope, err := r.Scope(ctx, scopeID)
	if err != nil {
		return Dataset{}, err
	}
	members, err := r.Roster(ctx, scopeID)
	if err != nil {
		return Dataset{}, err
	}
	tasks, err := r.TasksByScope(ctx, scopeID)
	if err != nil {
		return Dataset{}, err
	}
	subs, err := r.SubmissionsByScope(ctx, scopeID)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Scope: scope, Members: members, Tasks: tasks, Submissions: subs}, nil
}
