package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mesh-intelligence/queryshelf/internal/catalog"
	"github.com/mesh-intelligence/queryshelf/internal/databases"
	"github.com/mesh-intelligence/queryshelf/internal/logging"
	"github.com/mesh-intelligence/queryshelf/internal/suggest"
	"github.com/mesh-intelligence/queryshelf/pkg/sqlite"
	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// app bundles the attached catalog and everything built on top of it for
// the lifetime of one command.
type app struct {
	cfg       types.Config
	backend   types.Catalog
	databases *databases.Registry
	service   *catalog.Service
}

// openApp loads configuration, attaches the catalog and wires the facade.
// The caller must Close the result.
func openApp() (*app, error) {
	configDir, err := resolveConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach catalog: %w", err)
	}

	registry := databases.NewRegistry(cfg.Databases)
	opts := []catalog.Option{}
	if s := newSuggester(cfg.Completion); s != nil {
		opts = append(opts, catalog.WithSuggester(s))
	}

	return &app{
		cfg:       cfg,
		backend:   backend,
		databases: registry,
		service:   catalog.New(backend, registry, opts...),
	}, nil
}

// newSuggester returns nil when no API key is configured.
func newSuggester(cfg types.CompletionConfig) catalog.Suggester {
	logger := logging.Logger()
	key := strings.TrimSpace(os.Getenv(envAPIKey))
	if key == "" {
		logger.Debug("cli: " + envAPIKey + " not set; suggestions disabled")
		return nil
	}
	completer, err := suggest.NewOpenAI(cfg, key)
	if err != nil {
		logger.Warn("cli: suggestions disabled", "error", err)
		return nil
	}
	logger.Debug("cli: suggestions enabled", "model", cfg.Model)
	return suggest.NewAdapter(completer, cfg)
}

// store returns the query store with the schema in place.
func (a *app) store(ctx context.Context) (types.QueryStore, error) {
	schema, err := a.backend.Schema()
	if err != nil {
		return nil, err
	}
	if err := schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return a.backend.Queries()
}

func (a *app) Close() error {
	return errors.Join(a.databases.Close(), a.backend.Detach())
}
