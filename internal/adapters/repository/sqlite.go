package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/teampulse/internal/adapters/repository/migrations"
	"github.com/okian/teampulse/internal/domain/model"
)

const sqliteDriver = "sqlite"

func init() { //nolint:gochecknoinits // sqlx has no built-in bind type for modernc's driver name
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

// documentRow is one row of the documents table.
type documentRow struct {
	Collection string `db:"collection"`
	ScopeID    string `db:"scope_id"`
	ID         string `db:"id"`
	OwnerID    string `db:"owner_id"`
	Body       []byte `db:"body"`
	UpdatedAt  int64  `db:"updated_at"`
}

const selectDocuments = `SELECT collection, scope_id, id, owner_id, body, updated_at FROM documents`

// SQLiteStore persists documents in a single SQLite table.
type SQLiteStore struct {
	db   *sqlx.DB
	opts options
	now  func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies the
// embedded migrations.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open(sqliteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows one writer; a single connection queues them in the pool.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db.DB, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db, opts: newOptions(opts), now: time.Now}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) put(ctx context.Context, collection, scopeID, id, ownerID string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, scope_id, id, owner_id, body, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (collection, scope_id, id) DO UPDATE SET
		   owner_id = excluded.owner_id,
		   body = excluded.body,
		   updated_at = excluded.updated_at`,
		collection, scopeID, id, ownerID, string(body), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s %s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLiteStore) requireScope(ctx context.Context, scopeID string) error {
	var found int
	err := s.db.GetContext(ctx, &found,
		`SELECT 1 FROM documents WHERE collection = ? AND scope_id = ? AND id = ?`,
		CollectionScopes, scopeID, scopeID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("scope %q: %w", scopeID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup scope %q: %w", scopeID, err)
	}
	return nil
}

func (s *SQLiteStore) list(ctx context.Context, where string, args ...any) ([]documentRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, selectDocuments+" WHERE "+where+" ORDER BY seq", args...); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	return rows, nil
}

// decodeRows decodes every row, skipping and reporting the invalid ones.
func decodeRows[T record](rows []documentRow, onInvalid InvalidDocumentFunc) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		v, err := decode[T](row.Body)
		if err != nil {
			onInvalid(row.Collection, row.ID, err)
			continue
		}
		out = append(out, v)
	}
	return out
}

// UpsertScope implements Writer.
func (s *SQLiteStore) UpsertScope(ctx context.Context, scope model.Scope) error {
	scope.Normalize()
	body, err := encode(scope)
	if err != nil {
		return err
	}
	return s.put(ctx, CollectionScopes, scope.ID, scope.ID, "", body)
}

// UpsertMember implements Writer.
func (s *SQLiteStore) UpsertMember(ctx context.Context, scopeID string, member model.Member) error {
	body, err := encode(member)
	if err != nil {
		return err
	}
	if err := s.requireScope(ctx, scopeID); err != nil {
		return err
	}
	return s.put(ctx, CollectionMembers, scopeID, member.ID, member.ID, body)
}

// UpsertTask implements Writer.
func (s *SQLiteStore) UpsertTask(ctx context.Context, task model.TaskRecord) error {
	task.Normalize()
	body, err := encode(task)
	if err != nil {
		return err
	}
	if err := s.requireScope(ctx, task.ScopeID); err != nil {
		return err
	}
	return s.put(ctx, CollectionTasks, task.ScopeID, task.ID, task.AssigneeID, body)
}

// UpsertSubmission implements Writer.
func (s *SQLiteStore) UpsertSubmission(ctx context.Context, sub model.SubmissionRecord) error {
	body, err := encode(sub)
	if err != nil {
		return err
	}
	if err := s.requireScope(ctx, sub.ScopeID); err != nil {
		return err
	}
	return s.put(ctx, CollectionSubmissions, sub.ScopeID, sub.ID, sub.UserID, body)
}

// Scope implements RosterReader.
func (s *SQLiteStore) Scope(ctx context.Context, scopeID string) (model.Scope, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row, selectDocuments+` WHERE collection = ? AND scope_id = ? AND id = ?`,
		CollectionScopes, scopeID, scopeID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Scope{}, fmt.Errorf("scope %q: %w", scopeID, ErrNotFound)
	}
	if err != nil {
		return model.Scope{}, fmt.Errorf("get scope %q: %w", scopeID, err)
	}
	scope, err := decode[model.Scope](row.Body)
	if err != nil {
		s.opts.onInvalid(row.Collection, row.ID, err)
		return model.Scope{}, err
	}
	return scope, nil
}

// Scopes implements RosterReader.
func (s *SQLiteStore) Scopes(ctx context.Context) ([]model.Scope, error) {
	rows, err := s.list(ctx, "collection = ?", CollectionScopes)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Scope](rows, s.opts.onInvalid), nil
}

// Roster implements RosterReader.
func (s *SQLiteStore) Roster(ctx context.Context, scopeID string) ([]model.Member, error) {
	if err := s.requireScope(ctx, scopeID); err != nil {
		return nil, err
	}
	rows, err := s.list(ctx, "collection = ? AND scope_id = ?", CollectionMembers, scopeID)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Member](rows, s.opts.onInvalid), nil
}

// TasksByScope implements TaskReader.
func (s *SQLiteStore) TasksByScope(ctx context.Context, scopeID string) ([]model.TaskRecord, error) {
	rows, err := s.list(ctx, "collection = ? AND scope_id = ?", CollectionTasks, scopeID)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.TaskRecord](rows, s.opts.onInvalid), nil
}

// TasksByAssignee implements TaskReader.
func (s *SQLiteStore) TasksByAssignee(ctx context.Context, assigneeID string) ([]model.TaskRecord, error) {
	rows, err := s.list(ctx, "collection = ? AND owner_id = ?", CollectionTasks, assigneeID)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.TaskRecord](rows, s.opts.onInvalid), nil
}

// SubmissionsByScope implements SubmissionReader.
func (s *SQLiteStore) SubmissionsByScope(ctx context.Context, scopeID string) ([]model.SubmissionRecord, error) {
	rows, err := s.list(ctx, "collection = ? AND scope_id = ?", CollectionSubmissions, scopeID)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.SubmissionRecord](rows, s.opts.onInvalid), nil
}

// SubmissionsByUser implements SubmissionReader.
func (s *SQLiteStore) SubmissionsByUser(ctx context.Context, userID string) ([]model.SubmissionRecord, error) {
	rows, err := s.list(ctx, "collection = ? AND owner_id = ?", CollectionSubmissions, userID)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.SubmissionRecord](rows, s.opts.onInvalid), nil
}
