// Package catalog is the entry point for saving, listing, running and
// deleting saved queries. It coordinates the schema manager, the query
// store, the logical databases and the suggestion adapter, and maps their
// failures onto the error taxonomy in pkg/types.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/slugs"
	"github.com/mesh-intelligence/queryshelf/internal/suggest"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// Databases is the set of logical databases queries run against.
type Databases interface {
	Names() []string
	Has(name string) bool
	TableNames(ctx context.Context, name string) ([]string, error)
	Execute(ctx context.Context, name, query string, limit int) ([]map[string]any, error)
}

// Suggester produces title and description candidates for a query.
type Suggester interface {
	Suggest(ctx context.Context, database string, tableNames []string, sql string) (*suggest.Suggestion, error)
}

// Service is the catalog facade.
type Service struct {
	catalog   types.Catalog
	databases Databases
	suggester Suggester
	now       func() time.Time
	rowLimit  int
}

// Option configures a Service.
type Option func(*Service)

// WithSuggester enables Suggest. Without it Suggest returns ErrUnavailable.
func WithSuggester(s Suggester) Option {
	return func(svc *Service) { svc.suggester = s }
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// WithRowLimit caps the rows returned by Execute.
func WithRowLimit(n int) Option {
	return func(svc *Service) { svc.rowLimit = n }
}

// New returns a facade over an attached catalog and a set of databases.
func New(catalog types.Catalog, databases Databases, opts ...Option) *Service {
	svc := &Service{catalog: catalog, databases: databases, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SaveRequest carries the fields of a save. Slug may be empty when Title is
// set; the slug is then derived from the title.
type SaveRequest struct {
	Database    string
	SQL         string
	Slug        string
	Title       string
	Description string
	Actor       *types.Actor
}

// Save stores a new query. The caller must already be authorized.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*types.SavedQuery, error) {
	switch {
	case strings.TrimSpace(req.SQL) == "":
		return nil, &types.FieldError{Field: "sql", Reason: "is required"}
	case strings.TrimSpace(req.Database) == "":
		return nil, &types.FieldError{Field: "database", Reason: "is required"}
	case strings.TrimSpace(req.Slug) == "" && strings.TrimSpace(req.Title) == "":
		return nil, &types.FieldError{Field: "url", Reason: "is required"}
	}
	if !s.databases.Has(req.Database) {
		return nil, fmt.Errorf("database %q: %w", req.Database, types.ErrNotFound)
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = slugs.FromTitle(req.Title)
	}

	store, err := s.writableStore(ctx)
	if err != nil {
		return nil, err
	}
	saved, err := store.Create(ctx, types.SavedQuery{
		Slug:        slug,
		Database:    req.Database,
		Title:       req.Title,
		Description: req.Description,
		SQL:         req.SQL,
		Actor:       req.Actor.ActorID(),
		CreatedAt:   s.now().Unix(),
	})
	if err != nil {
		return nil, s.mapErr("save", err)
	}
	logging.Logger().Info("catalog: query saved", "database", saved.Database, "slug", saved.Slug)
	return saved, nil
}

// Delete removes (database, slug). Deleting a missing query succeeds. The
// caller must already be authorized.
func (s *Service) Delete(ctx context.Context, database, slug string) error {
	store, err := s.store()
	if err != nil {
		return err
	}
	if err := store.DeleteByKey(ctx, database, slug); err != nil {
		return s.mapErr("delete", err)
	}
	logging.Logger().Info("catalog: query deleted", "database", database, "slug", slug)
	return nil
}

// CannedQueries returns the saved queries of database keyed by slug.
func (s *Service) CannedQueries(ctx context.Context, database string) (map[string]types.CannedQuery, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	out, err := store.ListByDatabase(ctx, database)
	if err != nil {
		return nil, s.mapErr("list", err)
	}
	return out, nil
}

// Lookup returns one saved query.
func (s *Service) Lookup(ctx context.Context, database, slug string) (*types.SavedQuery, error) {
	store, err := s.store()
	if err != nil {
		return nil, err
	}
	q, err := store.Get(ctx, database, slug)
	if err != nil {
		return nil, s.mapErr("lookup", err)
	}
	return q, nil
}

// Execute runs a saved query against its database and returns the rows.
func (s *Service) Execute(ctx context.Context, database, slug string) (*types.SavedQuery, []map[string]any, error) {
	if !s.databases.Has(database) {
		return nil, nil, fmt.Errorf("database %q: %w", database, types.ErrNotFound)
	}
	q, err := s.Lookup(ctx, database, slug)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.databases.Execute(ctx, database, q.SQL, s.rowLimit)
	if err != nil {
		return nil, nil, s.mapErr("execute", err)
	}
	return q, rows, nil
}

// Tables lists the tables of a logical database.
func (s *Service) Tables(ctx context.Context, database string) ([]string, error) {
	names, err := s.databases.TableNames(ctx, database)
	if err != nil {
		return nil, s.mapErr("tables", err)
	}
	return names, nil
}

// Databases returns the logical database names.
func (s *Service) Databases() []string {
	return s.databases.Names()
}

// CanSuggest reports whether a suggester is configured.
func (s *Service) CanSuggest() bool {
	return s.suggester != nil
}

// Suggest asks the suggester for metadata for sql run against database.
func (s *Service) Suggest(ctx context.Context, database, sql string) (*suggest.Suggestion, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, &types.FieldError{Field: "sql", Reason: "parameter required"}
	}
	tables, err := s.Tables(ctx, database)
	if err != nil {
		return nil, err
	}
	if s.suggester == nil {
		return nil, fmt.Errorf("suggest: %w", types.ErrUnavailable)
	}

	sg, err := s.suggester.Suggest(ctx, database, tables, sql)
	switch {
	case err == nil:
		return sg, nil
	case errors.Is(err, types.ErrNoStructuredOutput),
		errors.Is(err, types.ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil, err
	}
	logging.Logger().Error("catalog: completion failed", "database", database, "error", err)
	return nil, fmt.Errorf("suggest: completion failed: %w", types.ErrUnavailable)
}

// store returns the query store without touching the schema.
func (s *Service) store() (types.QueryStore, error) {
	store, err := s.catalog.Queries()
	if err != nil {
		return nil, s.mapErr("open store", err)
	}
	return store, nil
}

// writableStore makes sure the schema exists before returning the store.
func (s *Service) writableStore(ctx context.Context) (types.QueryStore, error) {
	schema, err := s.catalog.Schema()
	if err != nil {
		return nil, s.mapErr("open schema", err)
	}
	if err := schema.EnsureSchema(ctx); err != nil {
		logging.Logger().Error("catalog: schema unavailable", "error", err)
		return nil, s.mapErr("ensure schema", err)
	}
	return s.store()
}

// known lists the errors callers may see unchanged.
var known = []error{
	types.ErrValidation,
	types.ErrConflict,
	types.ErrNotFound,
	types.ErrPermission,
	types.ErrNoStructuredOutput,
	types.ErrSchema,
	types.ErrUnavailable,
	types.ErrCatalogDetached,
	context.Canceled,
	context.DeadlineExceeded,
}

// mapErr passes taxonomy errors through and replaces anything else with
// ErrInternal after logging the cause.
func (s *Service) mapErr(op string, err error) error {
	for _, k := range known {
		if errors.Is(err, k) {
			return err
		}
	}
	logging.Logger().Error("catalog: storage failure", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, types.ErrInternal)
}
