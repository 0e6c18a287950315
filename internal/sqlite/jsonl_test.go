// Tests for JSONL export and import.
package sqlite

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

func TestExportImportRoundTrip(t *testing.T) {
	src := migratedStore(t, setupBackend(t))

	actor := "root"
	a := sampleQuery()
	a.Actor = &actor
	b := sampleQuery()
	b.Database = "fixtures"
	for _, q := range []types.SavedQuery{a, b} {
		_, err := src.Create(t.Context(), q)
		require.NoError(t, err)
	}

	path := filepath.Join(t.TempDir(), "queries.jsonl")
	n, err := ExportJSONL(t.Context(), src, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "data", first["database"])
	assert.Equal(t, "root", first["actor"])

	dst := migratedStore(t, setupBackend(t))
	res, err := ImportJSONL(t.Context(), dst, path, 1)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 2}, res)

	got, err := dst.Get(t.Context(), "data", "select-21")
	require.NoError(t, err)
	assert.Equal(t, a.SQL, got.SQL)
	require.NotNil(t, got.Actor)
	assert.Equal(t, "root", *got.Actor)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	// Importing again never overwrites.
	res, err = ImportJSONL(t.Context(), dst, path, 1)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Conflicts: 2}, res)
}

func TestImportSkipsBadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.jsonl")
	content := strings.Join([]string{
		`{"slug":"ok","database":"data","sql":"select 1","future_field":true}`,
		`not json at all`,
		``,
		`{"slug":"","database":"data","sql":"select 1"}`,
		`["an","array"]`,
		`{"slug":"Bad Slug","database":"data","sql":"select 1"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := migratedStore(t, setupBackend(t))
	res, err := ImportJSONL(t.Context(), store, path, 1234)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 3, res.Invalid)

	got, err := store.Get(t.Context(), "data", "ok")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), got.CreatedAt, "missing created_at defaults to now")
}

func TestImportMissingFile(t *testing.T) {
	store := migratedStore(t, setupBackend(t))
	_, err := ImportJSONL(t.Context(), store, filepath.Join(t.TempDir(), "nope.jsonl"), 1)
	assert.Error(t, err)
}

func TestWriteJSONLAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, writeJSONL(path, []json.RawMessage{json.RawMessage(`{"a":1}`)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}
