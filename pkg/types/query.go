package types

import (
	"strings"
	"time"
)

// SavedQuery is a named SQL query stored against one logical database.
// The pair (Slug, Database) is unique across the catalog. Rows are immutable
// once created; the only mutation is deletion.
type SavedQuery struct {
	Slug        string  `db:"slug" json:"slug"`               // URL-safe identifier, unique within Database.
	Database    string  `db:"database" json:"database"`       // Logical database the query targets.
	Title       string  `db:"title" json:"title"`             // Human label, may be empty.
	Description string  `db:"description" json:"description"` // May be empty.
	SQL         string  `db:"sql" json:"sql"`                 // Query text (required).
	Actor       *string `db:"actor" json:"actor,omitempty"`   // Creating principal, nil when anonymous.
	CreatedAt   int64   `db:"created_at" json:"created_at"`   // Unix seconds, set once at creation.
}

// CannedQuery is the shape of a saved query when served as a lookup table
// entry keyed by slug.
type CannedQuery struct {
	SQL         string `json:"sql"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Canned returns the lookup-table view of the query.
func (q SavedQuery) Canned() CannedQuery {
	return CannedQuery{SQL: q.SQL, Title: q.Title, Description: q.Description}
}

// Created returns CreatedAt as a UTC time.
func (q SavedQuery) Created() time.Time {
	return time.Unix(q.CreatedAt, 0).UTC()
}

// Location returns the canonical path of the saved query.
func (q SavedQuery) Location() string {
	return "/" + q.Database + "/" + q.Slug
}

// Validate checks the required fields. It returns a *FieldError naming the
// first missing field.
func (q SavedQuery) Validate() error {
	switch {
	case strings.TrimSpace(q.Slug) == "":
		return &FieldError{Field: "slug", Reason: "is required"}
	case strings.TrimSpace(q.Database) == "":
		return &FieldError{Field: "database", Reason: "is required"}
	case strings.TrimSpace(q.SQL) == "":
		return &FieldError{Field: "sql", Reason: "is required"}
	}
	return nil
}

// Actor identifies the principal making a request. A nil *Actor means the
// request is anonymous.
type Actor struct {
	ID string `json:"id"`
}

// ActorID returns a pointer to the actor's ID, or nil for anonymous callers.
// The result is suitable for SavedQuery.Actor.
func (a *Actor) ActorID() *string {
	if a == nil || a.ID == "" {
		return nil
	}
	id := a.ID
	return &id
}
