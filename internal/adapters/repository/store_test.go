package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/okian/teampulse/internal/domain/model"
)

func openTempSQLite(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "teampulse.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"sqlite": openTempSQLite(t),
		"memory": NewMemoryStore(),
	}
}

func seedScope(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	upd := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertScope(ctx, model.Scope{ID: "team-1", Name: "Growth"}))
	require.NoError(t, s.UpsertMember(ctx, "team-1", model.Member{ID: "u2", Name: "Bo", Role: model.RoleMarketing}))
	require.NoError(t, s.UpsertMember(ctx, "team-1", model.Member{ID: "u1", Name: "Ada", Role: model.RoleSales}))
	require.NoError(t, s.UpsertTask(ctx, model.TaskRecord{ID: "t1", ScopeID: "team-1", AssigneeID: "u1", Status: "done", DueDate: &due, UpdatedAt: &upd}))
	require.NoError(t, s.UpsertTask(ctx, model.TaskRecord{ID: "t2", ScopeID: "team-1", AssigneeID: "u1", Status: model.StatusToDo}))
	require.NoError(t, s.UpsertSubmission(ctx, model.SubmissionRecord{ID: "s1", ScopeID: "team-1", UserID: "u1", Rating: 4, SubmittedAt: upd}))
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedScope(t, s)

			scope, err := s.Scope(ctx, "team-1")
			require.NoError(t, err)
			require.Equal(t, model.ScopeTeam, scope.Kind)

			roster, err := s.Roster(ctx, "team-1")
			require.NoError(t, err)
			require.Len(t, roster, 2)
			require.Equal(t, "u2", roster[0].ID, "roster keeps insertion order")

			tasks, err := s.TasksByScope(ctx, "team-1")
			require.NoError(t, err)
			require.Len(t, tasks, 2)
			require.Equal(t, model.StatusDone, tasks[0].Status, "status is normalized on write")
			require.True(t, tasks[0].DueDate.Equal(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))

			byAssignee, err := s.TasksByAssignee(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, byAssignee, 2)

			subs, err := s.SubmissionsByUser(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, subs, 1)
			require.InDelta(t, 4.0, subs[0].Rating, 1e-9)

			ds, err := LoadDataset(ctx, s, "team-1")
			require.NoError(t, err)
			require.Len(t, ds.Members, 2)
			require.Len(t, ds.Tasks, 2)
			require.Len(t, ds.Submissions, 1)
		})
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seedScope(t, s)

			require.NoError(t, s.UpsertTask(ctx, model.TaskRecord{ID: "t2", ScopeID: "team-1", AssigneeID: "u2", Status: model.StatusReview}))
			require.NoError(t, s.UpsertMember(ctx, "team-1", model.Member{ID: "u2", Name: "Bob", Role: model.RoleMarketing}))

			tasks, err := s.TasksByScope(ctx, "team-1")
			require.NoError(t, err)
			require.Len(t, tasks, 2)
			require.Equal(t, "t2", tasks[1].ID)
			require.Equal(t, "u2", tasks[1].AssigneeID)

			mine, err := s.TasksByAssignee(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, mine, 1)

			roster, err := s.Roster(ctx, "team-1")
			require.NoError(t, err)
			require.Equal(t, "Bob", roster[0].Name)
		})
	}
}

func TestStoreErrors(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Scope(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			_, err = s.Roster(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			err = s.UpsertTask(ctx, model.TaskRecord{ID: "t1", ScopeID: "missing", Status: model.StatusDone})
			require.ErrorIs(t, err, ErrNotFound)

			err = s.UpsertTask(ctx, model.TaskRecord{ID: "t1", ScopeID: "team-1", Status: "archived"})
			require.ErrorIs(t, err, ErrInvalidDocument)

			err = s.UpsertSubmission(ctx, model.SubmissionRecord{ID: "s1", ScopeID: "team-1", UserID: "u1", Rating: 9, SubmittedAt: time.Now()})
			require.ErrorIs(t, err, ErrInvalidDocument)

			err = s.UpsertScope(ctx, model.Scope{ID: "x", Kind: "guild"})
			require.ErrorIs(t, err, ErrInvalidDocument)

			tasks, err := s.TasksByScope(ctx, "missing")
			require.NoError(t, err)
			require.Empty(t, tasks)
		})
	}
}

func TestSQLiteSkipsInvalidDocuments(t *testing.T) {
	ctx := context.Background()
	var (
		mu      sync.Mutex
		skipped []string
	)
	s := openTempSQLite(t, WithInvalidDocumentHook(func(collection, id string, err error) {
		mu.Lock()
		defer mu.Unlock()
		require.True(t, errors.Is(err, ErrInvalidDocument))
		skipped = append(skipped, collection+"/"+id)
	}))
	seedScope(t, s)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, scope_id, id, owner_id, body, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		CollectionTasks, "team-1", "bad-status", "u1", `{"id":"bad-status","scope_id":"team-1","status":"Archived"}`, 0)
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, scope_id, id, owner_id, body, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		CollectionTasks, "team-1", "garbage", "u1", `{not json`, 0)
	require.NoError(t, err)

	tasks, err := s.TasksByScope(ctx, "team-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.ElementsMatch(t, []string{"tasks/bad-status", "tasks/garbage"}, skipped)
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "teampulse.db")
	ctx := context.Background()

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.UpsertScope(ctx, model.Scope{ID: "p1", Kind: model.ScopeProject}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close() })

	scopes, err := second.Scopes(ctx)
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	require.Equal(t, model.ScopeProject, scopes[0].Kind)
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "  ")
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestUpSection(t *testing.T) {
	require.Equal(t, "\nCREATE x;\n", upSection("-- +migrate Up\nCREATE x;\n-- +migrate Down\nDROP x;"))
	require.Equal(t, "CREATE y;", upSection("CREATE y;"))
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.Scopes(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteConcurrentWrites(t *testing.T) {
	s := openTempSQLite(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertScope(ctx, model.Scope{ID: "team"}))

	const writers, perWriter = 32, 20
	errs := make(chan error, writers*perWriter)
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				errs <- s.UpsertTask(ctx, model.TaskRecord{
					ID:         fmt.Sprintf("t-%d-%d", w, i),
					ScopeID:    "team",
					AssigneeID: fmt.Sprintf("u%d", w),
					Status:     model.StatusDone,
				})
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	tasks, err := s.TasksByScope(ctx, "team")
	require.NoError(t, err)
	require.Len(t, tasks, writers*perWriter)
}
