// Package sqlite implements the SQLite storage backend for the queryshelf
// catalog: connection handling, the schema manager, and the query store.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// CatalogFile is the name of the catalog database inside DataDir.
const CatalogFile = "catalog.db"

// defaultBusyTimeout bounds how long a connection waits on a locked database
// before returning SQLITE_BUSY.
const defaultBusyTimeout = 5 * time.Second

// Backend implements types.Catalog using a SQLite file in DataDir.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sqlx.DB
	schema   *schemaManager
	queries  *queriesTable
}

var _ types.Catalog = (*Backend)(nil)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens (creating if needed) DataDir/catalog.db. The schema is not
// touched here; writers call Schema().EnsureSchema before their first write.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	db, err := OpenDB(filepath.Join(dataDir, CatalogFile), false)
	if err != nil {
		return err
	}

	b.db = db
	b.config = config
	b.schema = newSchemaManager(db, migrationSet, catalogMigrations)
	b.queries = &queriesTable{backend: b}
	b.attached = true
	return nil
}

// Detach closes the SQLite connection pool. After Detach, Schema and Queries
// return ErrCatalogDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.schema = nil
	b.queries = nil
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return fmt.Errorf("closing catalog: %w", err)
		}
	}
	return nil
}

// Schema returns the catalog's schema manager.
func (b *Backend) Schema() (types.SchemaManager, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrCatalogDetached
	}
	return b.schema, nil
}

// Queries returns the catalog's query store.
func (b *Backend) Queries() (types.QueryStore, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrCatalogDetached
	}
	return b.queries, nil
}

// handle returns the live connection pool or ErrCatalogDetached.
func (b *Backend) handle() (*sqlx.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrCatalogDetached
	}
	return b.db, nil
}

// OpenDB opens the SQLite file at path through sqlx. Writable handles use WAL
// and take the write lock when a transaction begins, so a transaction that
// reads before it writes cannot be overtaken by another writer. Read-only
// handles open the file with mode=ro, which no statement can lift, and also
// set query_only. A read-only open of a missing file fails.
func OpenDB(path string, readOnly bool) (*sqlx.DB, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	busy := int(defaultBusyTimeout / time.Millisecond)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", abs, busy)
	if readOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)&_pragma=query_only(1)", abs, busy)
	} else {
		dsn += "&_pragma=journal_mode(WAL)&_txlock=immediate"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultBusyTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// withTx runs fn inside a transaction, committing on success.
func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
