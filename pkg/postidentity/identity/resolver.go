// Package identity resolves a user-supplied identity argument, which may be
// a UUID or a display name, to the canonical identity id.
package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/postidentity/postidentity-mcp/pkg/postidentity/backend"
)

// Outcome classifies a resolution result. NotFound and Ambiguous are soft
// conditions: callers format guidance text rather than failing the call.
type Outcome int

const (
	Resolved Outcome = iota
	NotFound
	Ambiguous
)

// Resolution is the result of resolving an identity argument
type Resolution struct {
	ID      string
	Name    string
	Outcome Outcome
}

// ProfileLookup is the slice of the backend client the resolver needs
type ProfileLookup interface {
	LookupProfilesByName(ctx context.Context, userID, name string) ([]backend.Profile, error)
}

// Resolver resolves name-or-UUID identity arguments. It holds no cache:
// every call re-queries the backend, trading a round trip for freshness.
type Resolver struct {
	profiles ProfileLookup
}

// NewResolver creates a new Resolver
func NewResolver(profiles ProfileLookup) *Resolver {
	return &Resolver{profiles: profiles}
}

// Resolve returns the canonical identity id for idOrName. Canonical UUIDs
// pass through with no backend call; anything else is matched
// case-insensitively against the names of the user's active identities.
func (r *Resolver) Resolve(ctx context.Context, idOrName, userID string) (*Resolution, error) {
	if isCanonicalUUID(idOrName) {
		return &Resolution{ID: idOrName, Outcome: Resolved}, nil
	}

	profiles, err := r.profiles.LookupProfilesByName(ctx, userID, idOrName)
	if err != nil {
		return nil, err
	}

	switch len(profiles) {
	case 0:
		return &Resolution{Outcome: NotFound}, nil
	case 1:
		return &Resolution{ID: profiles[0].ID, Name: profiles[0].Name, Outcome: Resolved}, nil
	default:
		return &Resolution{Outcome: Ambiguous}, nil
	}
}

// isCanonicalUUID accepts only the 8-4-4-4-12 textual form. uuid.Parse
// alone is too permissive here: it also takes braced, URN, and bare-hex
// encodings, none of which the backend would match against an id column.
func isCanonicalUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
