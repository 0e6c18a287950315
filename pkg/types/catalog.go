package types

import "context"

// Catalog is the backend-agnostic handle to the saved query catalog.
// Callers attach to a backend, use the schema manager and query store, and
// detach when done.
type Catalog interface {
	// Attach opens the backend described by config. Returns
	// ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error

	// Schema returns the schema manager. Returns ErrCatalogDetached after Detach.
	Schema() (SchemaManager, error)

	// Queries returns the query store. Returns ErrCatalogDetached after Detach.
	Queries() (QueryStore, error)
}

// SchemaManager owns the catalog table definition and its migrations.
type SchemaManager interface {
	// EnsureSchema applies every pending migration step exactly once.
	// Safe to call concurrently and repeatedly. Failures match ErrSchema.
	EnsureSchema(ctx context.Context) error

	// Applied returns the names of the migration steps recorded in the ledger.
	Applied(ctx context.Context) ([]string, error)
}

// QueryStore is the only path to the saved query rows.
type QueryStore interface {
	// Create inserts q. Returns ErrValidation for missing fields and
	// ErrConflict when (Slug, Database) already exists.
	Create(ctx context.Context, q SavedQuery) (*SavedQuery, error)

	// Get returns the query stored under (database, slug) or ErrNotFound.
	Get(ctx context.Context, database, slug string) (*SavedQuery, error)

	// ListByDatabase returns the queries of one database keyed by slug.
	// A missing table or no rows yields an empty map.
	ListByDatabase(ctx context.Context, database string) (map[string]CannedQuery, error)

	// DeleteByKey removes (database, slug). Deleting a missing key succeeds.
	DeleteByKey(ctx context.Context, database, slug string) error

	// All returns every stored query ordered by database, then slug.
	All(ctx context.Context) ([]SavedQuery, error)
}
