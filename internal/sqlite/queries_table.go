// This file implements the query store over the _queryshelf_queries table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/queryshelf/internal/slugs"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

var _ types.QueryStore = (*queriesTable)(nil)

const (
	insertQuery = `INSERT INTO _queryshelf_queries
    (slug, "database", title, description, sql, actor, created_at)
VALUES
    (:slug, :database, :title, :description, :sql, :actor, :created_at)`

	selectQueryColumns = `SELECT slug, "database", title, description, sql, actor, created_at FROM _queryshelf_queries`
)

// queriesTable implements types.QueryStore. Rows are decoded into
// types.SavedQuery here and nowhere else.
type queriesTable struct {
	backend *Backend
}

// Create inserts q as a new row. Uniqueness of (slug, database) is left to
// the primary key so that concurrent creates resolve inside SQLite: exactly
// one insert wins and the others get ErrConflict.
func (qt *queriesTable) Create(ctx context.Context, q types.SavedQuery) (*types.SavedQuery, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if !slugs.IsURLSafe(q.Slug) {
		return nil, &types.FieldError{Field: "slug", Reason: "must contain only lower-case letters, digits, '-' and '_'"}
	}

	db, err := qt.backend.handle()
	if err != nil {
		return nil, err
	}

	if _, err := db.NamedExecContext(ctx, insertQuery, q); err != nil {
		switch {
		case isConstraintViolation(err):
			return nil, fmt.Errorf("%w: %q in database %q", types.ErrConflict, q.Slug, q.Database)
		case isNoSuchTable(err):
			return nil, &types.SchemaError{Err: err}
		}
		return nil, fmt.Errorf("inserting query: %w", err)
	}

	saved := q
	return &saved, nil
}

// Get returns the query stored under (database, slug).
func (qt *queriesTable) Get(ctx context.Context, database, slug string) (*types.SavedQuery, error) {
	db, err := qt.backend.handle()
	if err != nil {
		return nil, err
	}

	var q types.SavedQuery
	err = db.GetContext(ctx, &q, selectQueryColumns+` WHERE "database" = ? AND slug = ?`, database, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isNoSuchTable(err) {
			return nil, fmt.Errorf("query %q in database %q: %w", slug, database, types.ErrNotFound)
		}
		return nil, fmt.Errorf("getting query: %w", err)
	}
	return &q, nil
}

// ListByDatabase returns the queries saved against database keyed by slug.
// A catalog that has never been written to yields an empty map.
func (qt *queriesTable) ListByDatabase(ctx context.Context, database string) (map[string]types.CannedQuery, error) {
	db, err := qt.backend.handle()
	if err != nil {
		return nil, err
	}

	var rows []types.SavedQuery
	err = db.SelectContext(ctx, &rows, selectQueryColumns+` WHERE "database" = ?`, database)
	if err != nil && !isNoSuchTable(err) {
		return nil, fmt.Errorf("listing queries: %w", err)
	}

	out := make(map[string]types.CannedQuery, len(rows))
	for _, q := range rows {
		out[q.Slug] = q.Canned()
	}
	return out, nil
}

// DeleteByKey removes (database, slug). Zero affected rows, including a
// missing table, is success.
func (qt *queriesTable) DeleteByKey(ctx context.Context, database, slug string) error {
	if strings.TrimSpace(database) == "" {
		return &types.FieldError{Field: "database", Reason: "is required"}
	}
	if strings.TrimSpace(slug) == "" {
		return &types.FieldError{Field: "slug", Reason: "is required"}
	}

	db, err := qt.backend.handle()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `DELETE FROM _queryshelf_queries WHERE slug = ? AND "database" = ?`, slug, database)
	if err != nil && !isNoSuchTable(err) {
		return fmt.Errorf("deleting query: %w", err)
	}
	return nil
}

// All returns every saved query ordered by database, then slug.
func (qt *queriesTable) All(ctx context.Context) ([]types.SavedQuery, error) {
	db, err := qt.backend.handle()
	if err != nil {
		return nil, err
	}

	var rows []types.SavedQuery
	err = db.SelectContext(ctx, &rows, selectQueryColumns+` ORDER BY "database", slug`)
	if err != nil && !isNoSuchTable(err) {
		return nil, fmt.Errorf("listing all queries: %w", err)
	}
	if rows == nil {
		rows = []types.SavedQuery{}
	}
	return rows, nil
}

// isConstraintViolation reports whether err is a primary key or unique
// constraint failure.
func isConstraintViolation(err error) bool {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
		return true
	}
	return false
}

// isNoSuchTable reports whether err comes from querying a table that has not
// been created yet. SQLite reports this as a generic SQLITE_ERROR, so the
// message is checked only after the code matches.
func isNoSuchTable(err error) bool {
	var se *sqlitedriver.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_ERROR && strings.Contains(se.Error(), "no such table")
}
