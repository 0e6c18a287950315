package types

import (
	"errors"
	"fmt"
)

// Catalog errors. Callers match these with errors.Is; the concrete error may
// carry more context (see FieldError and SchemaError).
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("query already exists")
	ErrNotFound           = errors.New("not found")
	ErrPermission         = errors.New("permission denied")
	ErrNoStructuredOutput = errors.New("no structured output in completion")
	ErrSchema             = errors.New("catalog schema unavailable")
	ErrUnavailable        = errors.New("capability not available")
	ErrInternal           = errors.New("internal catalog failure")
)

// Catalog lifecycle errors.
var (
	ErrCatalogDetached = errors.New("catalog is detached")
	ErrAlreadyAttached = errors.New("catalog is already attached")
)

// FieldError reports a missing or malformed request field.
// It matches ErrValidation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrValidation.
func (e *FieldError) Is(target error) bool {
	return target == ErrValidation
}

// SchemaError reports that the catalog storage could not be prepared.
// It matches ErrSchema and unwraps to the storage cause.
type SchemaError struct {
	Step string // Migration step being applied, empty for ledger setup.
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("preparing catalog schema: %v", e.Err)
	}
	return fmt.Sprintf("applying migration %s: %v", e.Step, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSchema.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}
