// This file implements JSONL import into the catalog.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// ImportResult counts the outcome of ImportJSONL.
type ImportResult struct {
	Imported  int `json:"imported"`
	Conflicts int `json:"conflicts"` // Key already present; the stored row is kept.
	Invalid   int `json:"invalid"`   // Not a query object, or failed validation.
}

// ImportJSONL creates one saved query per line of path through store.Create.
// Existing keys are never overwritten. Lines that are not JSON are skipped
// and unknown fields are ignored. The caller must have run EnsureSchema.
// A record without created_at gets now.
func ImportJSONL(ctx context.Context, store types.QueryStore, path string, now int64) (ImportResult, error) {
	var res ImportResult

	records, err := readJSONL(path)
	if err != nil {
		return res, err
	}

	for _, rec := range records {
		var q types.SavedQuery
		if err := json.Unmarshal(rec, &q); err != nil {
			res.Invalid++
			continue
		}
		if q.CreatedAt == 0 {
			q.CreatedAt = now
		}

		_, err := store.Create(ctx, q)
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, types.ErrConflict):
			res.Conflicts++
		case errors.Is(err, types.ErrValidation):
			res.Invalid++
		default:
			return res, err
		}
	}
	return res, nil
}
