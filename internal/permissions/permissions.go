// Package permissions decides whether an actor may change the catalog.
package permissions

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/queryshelf/pkg/types"
)

// Wildcard in an allow list admits any identified actor.
const Wildcard = "*"

// Checker authorizes catalog mutations.
type Checker interface {
	// Allow returns nil when actor may save or delete queries and an error
	// matching ErrPermission otherwise.
	Allow(ctx context.Context, actor *types.Actor) error
}

// AllowList admits actors whose ID is listed. Anonymous actors are never
// admitted.
type AllowList struct {
	any bool
	ids map[string]bool
}

var _ Checker = (*AllowList)(nil)

// NewAllowList builds a checker from ids. An empty list admits nobody.
func NewAllowList(ids []string) *AllowList {
	l := &AllowList{ids: make(map[string]bool, len(ids))}
	for _, id := range ids {
		if id == Wildcard {
			l.any = true
			continue
		}
		if id != "" {
			l.ids[id] = true
		}
	}
	return l
}

// Allow implements Checker.
func (l *AllowList) Allow(_ context.Context, actor *types.Actor) error {
	if actor == nil || actor.ID == "" {
		return fmt.Errorf("anonymous actor: %w", types.ErrPermission)
	}
	if l.any || l.ids[actor.ID] {
		return nil
	}
	return fmt.Errorf("actor %q: %w", actor.ID, types.ErrPermission)
}
