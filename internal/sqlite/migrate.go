package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

var _ types.SchemaManager = (*schemaManager)(nil)

// schemaManager applies an ordered list of migrations against a ledger table.
// Within a process, mu serializes callers and ready short-circuits repeat
// calls. Across processes, the immediate-lock transaction and the ledger
// primary key keep a step from running twice.
type schemaManager struct {
	db    *sqlx.DB
	set   string
	steps []migration

	mu    sync.Mutex
	ready bool
}

func newSchemaManager(db *sqlx.DB, set string, steps []migration) *schemaManager {
	return &schemaManager{db: db, set: set, steps: steps}
}

// EnsureSchema creates the ledger if needed and applies every step not yet
// recorded in it, all in one transaction. Errors match types.ErrSchema.
func (m *schemaManager) EnsureSchema(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return nil
	}

	err := withTx(ctx, m.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, createMigrations); err != nil {
			return &types.SchemaError{Err: err}
		}
		for _, step := range m.steps {
			if err := m.apply(ctx, tx, step); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var se *types.SchemaError
		if !errors.As(err, &se) {
			err = &types.SchemaError{Err: err}
		}
		return err
	}

	m.ready = true
	return nil
}

// apply runs step unless the ledger already records it.
func (m *schemaManager) apply(ctx context.Context, tx *sqlx.Tx, step migration) error {
	var applied int
	err := tx.GetContext(ctx, &applied,
		"SELECT COUNT(*) FROM _queryshelf_migrations WHERE migration_set = ? AND name = ?",
		m.set, step.name)
	if err != nil {
		return &types.SchemaError{Step: step.name, Err: err}
	}
	if applied > 0 {
		return nil
	}

	for _, stmt := range step.stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return &types.SchemaError{Step: step.name, Err: err}
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO _queryshelf_migrations (migration_set, name, applied_at) VALUES (?, ?, ?)",
		m.set, step.name, time.Now().Unix()); err != nil {
		return &types.SchemaError{Step: step.name, Err: fmt.Errorf("recording step: %w", err)}
	}
	return nil
}

// Applied returns the recorded step names in application order. A catalog
// that was never migrated has none.
func (m *schemaManager) Applied(ctx context.Context) ([]string, error) {
	var names []string
	err := m.db.SelectContext(ctx, &names,
		"SELECT name FROM _queryshelf_migrations WHERE migration_set = ? ORDER BY applied_at, rowid",
		m.set)
	if err != nil {
		if isNoSuchTable(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading migration ledger: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
