// Package slugs turns human titles into saved query identifiers.
//
// Normalize is the canonical transform: lower-case, whitespace runs collapsed
// to single hyphens. It performs no uniqueness checking; the catalog's
// composite key is the only source of truth for conflicts.
package slugs

import (
	"strings"

	goslug "github.com/gosimple/slug"
)

// Normalize lower-cases text, splits it on whitespace runs and joins the
// segments with single hyphens. Leading and trailing whitespace is dropped.
//
//	Normalize("Select 21")          == "select-21"
//	Normalize("  Multi   Space ")   == "multi-space"
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), "-")
}

// IsURLSafe reports whether s can be stored as a slug: lower-case ASCII
// letters, digits, '-' and '_', not starting or ending with a separator.
func IsURLSafe(s string) bool {
	return goslug.IsSlug(s)
}

// FromTitle derives a storable slug from a title. It prefers Normalize and
// falls back to a transliterating slug when the normalized form contains
// characters that are not URL-safe. Returns "" for a blank title.
func FromTitle(title string) string {
	n := Normalize(title)
	if n == "" || IsURLSafe(n) {
		return n
	}
	return goslug.Make(title)
}
