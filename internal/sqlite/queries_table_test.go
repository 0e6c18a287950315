// Tests for the query store.
package sqlite

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

func sampleQuery() types.SavedQuery {
	return types.SavedQuery{
		Slug:        "select-21",
		Database:    "data",
		Title:       "Select 21",
		Description: "Returns 21",
		SQL:         "select 21",
		CreatedAt:   1700000000,
	}
}

func TestQueries_CreateThenList(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	q := sampleQuery()
	saved, err := store.Create(t.Context(), q)
	require.NoError(t, err)
	assert.Equal(t, q, *saved)

	got, err := store.ListByDatabase(t.Context(), "data")
	require.NoError(t, err)
	require.Contains(t, got, "select-21")
	assert.Equal(t, types.CannedQuery{SQL: "select 21", Title: "Select 21", Description: "Returns 21"}, got["select-21"])

	other, err := store.ListByDatabase(t.Context(), "other")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestQueries_GetRoundTrip(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	actor := "root"
	q := sampleQuery()
	q.Actor = &actor
	_, err := store.Create(t.Context(), q)
	require.NoError(t, err)

	anon := sampleQuery()
	anon.Slug = "anonymous"
	_, err = store.Create(t.Context(), anon)
	require.NoError(t, err)

	got, err := store.Get(t.Context(), "data", "select-21")
	require.NoError(t, err)
	require.NotNil(t, got.Actor)
	assert.Equal(t, "root", *got.Actor)
	assert.Equal(t, int64(1700000000), got.CreatedAt)

	got, err = store.Get(t.Context(), "data", "anonymous")
	require.NoError(t, err)
	assert.Nil(t, got.Actor, "anonymous saves store NULL actor")

	_, err = store.Get(t.Context(), "data", "missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestQueries_ListBeforeSchema(t *testing.T) {
	b := setupBackend(t)
	store, err := b.Queries()
	require.NoError(t, err)

	got, err := store.ListByDatabase(t.Context(), "data")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	all, err := store.All(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = store.Get(t.Context(), "data", "x")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.NoError(t, store.DeleteByKey(t.Context(), "data", "x"))
}

func TestQueries_CreateWithoutSchema(t *testing.T) {
	b := setupBackend(t)
	store, err := b.Queries()
	require.NoError(t, err)

	_, err = store.Create(t.Context(), sampleQuery())
	assert.ErrorIs(t, err, types.ErrSchema)
}

func TestQueries_CreateConflict(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	_, err := store.Create(t.Context(), sampleQuery())
	require.NoError(t, err)

	dup := sampleQuery()
	dup.SQL = "select 22"
	_, err = store.Create(t.Context(), dup)
	assert.ErrorIs(t, err, types.ErrConflict)

	got, err := store.Get(t.Context(), "data", "select-21")
	require.NoError(t, err)
	assert.Equal(t, "select 21", got.SQL, "conflict must not overwrite")
}

func TestQueries_SameSlugAcrossDatabases(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	a := sampleQuery()
	b := sampleQuery()
	b.Database = "fixtures"
	b.SQL = "select 42"

	_, err := store.Create(t.Context(), a)
	require.NoError(t, err)
	_, err = store.Create(t.Context(), b)
	require.NoError(t, err)

	got, err := store.ListByDatabase(t.Context(), "fixtures")
	require.NoError(t, err)
	assert.Equal(t, "select 42", got["select-21"].SQL)
}

func TestQueries_CreateValidation(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	tests := []struct {
		name  string
		mut   func(q *types.SavedQuery)
		field string
	}{
		{"empty slug", func(q *types.SavedQuery) { q.Slug = "" }, "slug"},
		{"empty database", func(q *types.SavedQuery) { q.Database = "" }, "database"},
		{"empty sql", func(q *types.SavedQuery) { q.SQL = " " }, "sql"},
		{"slug with space", func(q *types.SavedQuery) { q.Slug = "select 21" }, "slug"},
		{"slug with slash", func(q *types.SavedQuery) { q.Slug = "a/b" }, "slug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sampleQuery()
			tt.mut(&q)
			_, err := store.Create(t.Context(), q)
			require.ErrorIs(t, err, types.ErrValidation)
			var fe *types.FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}

	all, err := store.All(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestQueries_ConcurrentCreateSameKey(t *testing.T) {
	store := migratedStore(t, setupBackend(t))
	const writers = 8

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = store.Create(t.Context(), sampleQuery())
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, types.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)

	all, err := store.All(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestQueries_DeleteIdempotent(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	_, err := store.Create(t.Context(), sampleQuery())
	require.NoError(t, err)

	require.NoError(t, store.DeleteByKey(t.Context(), "data", "select-21"))
	got, err := store.ListByDatabase(t.Context(), "data")
	require.NoError(t, err)
	assert.NotContains(t, got, "select-21")

	require.NoError(t, store.DeleteByKey(t.Context(), "data", "select-21"))
	got, err = store.ListByDatabase(t.Context(), "data")
	require.NoError(t, err)
	assert.NotContains(t, got, "select-21")

	// The key is free again after deletion.
	_, err = store.Create(t.Context(), sampleQuery())
	assert.NoError(t, err)
}

func TestQueries_DeleteScopedToDatabase(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	a := sampleQuery()
	b := sampleQuery()
	b.Database = "fixtures"
	_, err := store.Create(t.Context(), a)
	require.NoError(t, err)
	_, err = store.Create(t.Context(), b)
	require.NoError(t, err)

	require.NoError(t, store.DeleteByKey(t.Context(), "data", "select-21"))

	_, err = store.Get(t.Context(), "fixtures", "select-21")
	assert.NoError(t, err)
}

func TestQueries_DeleteRequiresKey(t *testing.T) {
	store := migratedStore(t, setupBackend(t))
	assert.ErrorIs(t, store.DeleteByKey(t.Context(), "", "x"), types.ErrValidation)
	assert.ErrorIs(t, store.DeleteByKey(t.Context(), "data", ""), types.ErrValidation)
}

func TestQueries_AllOrdered(t *testing.T) {
	store := migratedStore(t, setupBackend(t))

	for _, key := range [][2]string{{"zeta", "b"}, {"alpha", "b"}, {"mid", "a"}} {
		q := sampleQuery()
		q.Database, q.Slug = key[0], key[1]
		_, err := store.Create(t.Context(), q)
		require.NoError(t, err)
	}

	all, err := store.All(t.Context())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"alpha/b", "mid/a", "zeta/b"}, []string{
		all[0].Database + "/" + all[0].Slug,
		all[1].Database + "/" + all[1].Slug,
		all[2].Database + "/" + all[2].Slug,
	})
}

func TestIsNoSuchTable(t *testing.T) {
	b := setupBackend(t)
	db, err := b.handle()
	require.NoError(t, err)

	_, err = db.ExecContext(t.Context(), `SELECT 1 FROM missing_table`)
	require.Error(t, err)
	assert.True(t, isNoSuchTable(err))
	assert.True(t, isNoSuchTable(fmt.Errorf("listing: %w", err)))

	assert.False(t, isNoSuchTable(nil))
	assert.False(t, isNoSuchTable(errors.New("no such table: _queryshelf_queries")), "plain errors carry no SQLite code")

	_, err = db.ExecContext(t.Context(), `SELEC 1`)
	require.Error(t, err)
	assert.False(t, isNoSuchTable(err), "other SQLITE_ERROR failures")
}
