// Package databases holds the logical databases that saved queries run
// against. Each logical database is a named SQLite file opened read-only.
package databases

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/sqlite"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// DefaultRowLimit caps the rows returned by Execute when the caller passes
// a non-positive limit.
const DefaultRowLimit = 1000

// Registry maps logical database names to SQLite files. Connections are
// opened on first use and shared afterwards.
type Registry struct {
	mu    sync.Mutex
	paths map[string]string
	open  map[string]*sqlx.DB
}

// NewRegistry returns a registry over paths (name -> file). The map is
// copied.
func NewRegistry(paths map[string]string) *Registry {
	cp := make(map[string]string, len(paths))
	for name, path := range paths {
		cp[name] = path
	}
	return &Registry{paths: cp, open: make(map[string]*sqlx.DB)}
}

// Names returns the registered database names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.paths))
	for name := range r.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered and its file exists.
func (r *Registry) Has(name string) bool {
	path, ok := r.paths[name]
	return ok && fileExists(path)
}

// db returns the connection for name, opening it on first use. A registered
// name whose file is missing is ErrNotFound; the file is never created.
func (r *Registry) db(name string) (*sqlx.DB, error) {
	path, ok := r.paths[name]
	if !ok {
		return nil, fmt.Errorf("database %q: %w", name, types.ErrNotFound)
	}
	if !fileExists(path) {
		logging.Logger().Warn("databases: configured file is missing", "database", name, "path", path)
		return nil, fmt.Errorf("database %q has no file: %w", name, types.ErrNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if db, ok := r.open[name]; ok {
		return db, nil
	}
	db, err := sqlite.OpenDB(path, true)
	if err != nil {
		return nil, fmt.Errorf("opening database %q: %w", name, err)
	}
	r.open[name] = db
	return db, nil
}

// TableNames lists the user tables of database name, sorted. Internal
// SQLite and catalog tables are omitted.
func (r *Registry) TableNames(ctx context.Context, name string) ([]string, error) {
	db, err := r.db(name)
	if err != nil {
		return nil, err
	}

	var names []string
	err = db.SelectContext(ctx, &names, `SELECT name FROM sqlite_master
WHERE type = 'table'
  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
  AND name NOT LIKE '\_queryshelf\_%' ESCAPE '\'
ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables of %q: %w", name, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Execute runs query against database name and returns at most limit rows,
// each as a column -> value map. The file is opened read-only, so statements
// that modify the database fail. Errors never include the query text.
func (r *Registry) Execute(ctx context.Context, name, query string, limit int) ([]map[string]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &types.FieldError{Field: "sql", Reason: "is required"}
	}
	if limit <= 0 {
		limit = DefaultRowLimit
	}

	db, err := r.db(name)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("executing query on %q: %w", name, err)
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() && len(out) < limit {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading rows: %w", err)
	}
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Close closes every opened connection.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, db := range r.open {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing database %q: %w", name, err)
		}
		delete(r.open, name)
	}
	return firstErr
}
