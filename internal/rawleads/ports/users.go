// Package ports defines consumer-driven interfaces for external dependencies.
// These interfaces are defined in the raw leads domain based on what it
// needs, rather than what the user store chooses to offer.
package ports

import (
	"context"

	"github.com/google/uuid"
)

// UserSummary is the minimal user data the raw leads domain shows.
type UserSummary struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// UserDirectory resolves users referenced by raw leads.
type UserDirectory interface {
	// UserExists reports whether an assignee id refers to a real user.
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	// GetUsersByIDs looks up many users in one call. Unknown ids are absent
	// from the result.
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]UserSummary, error)
	// FindAdminID returns some user holding the admin role, or nil when
	// there is none.
	FindAdminID(ctx context.Context) (*uuid.UUID, error)
}
