package sqlite

// migrationSet names the ledger rows owned by this catalog.
const migrationSet = "queryshelf"

// createMigrations is the ledger. Its primary key is what makes a step
// "applied at most once".
const createMigrations = `CREATE TABLE IF NOT EXISTS _queryshelf_migrations (
    migration_set TEXT NOT NULL,
    name TEXT NOT NULL,
    applied_at INTEGER NOT NULL,
    PRIMARY KEY (migration_set, name)
);`

// Catalog DDL. The leading underscore keeps catalog tables apart from user
// tables when the catalog shares a file with other data. "database" is
// quoted everywhere because it is an SQL keyword.
const (
	createQueries = `CREATE TABLE _queryshelf_queries (
    slug TEXT NOT NULL,
    "database" TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    sql TEXT NOT NULL,
    actor TEXT,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (slug, "database")
);`

	idxQueriesDatabase = `CREATE INDEX idx_queryshelf_queries_database ON _queryshelf_queries("database");`
)

// migration is one forward-only schema step.
type migration struct {
	name  string
	stmts []string
}

// catalogMigrations lists every step in application order. Steps are never
// edited or removed once released; new schema changes append a step.
var catalogMigrations = []migration{
	{name: "create_queries", stmts: []string{createQueries}},
	{name: "index_queries_database", stmts: []string{idxQueriesDatabase}},
}
