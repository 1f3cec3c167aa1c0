// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping repositories from providing domains.
package adapters

import (
	"context"
	"errors"
	"strings"

	"telecall_backend/internal/rawleads/ports"
	userrepo "telecall_backend/internal/users/repository"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UserDirectoryAdapter satisfies the raw leads UserDirectory port from the
// users table, so the pipeline never touches user internals.
type UserDirectoryAdapter struct {
	repo userrepo.UserReader
}

// NewUserDirectoryAdapter wraps the users repository.
func NewUserDirectoryAdapter(repo userrepo.UserReader) *UserDirectoryAdapter {
	return &UserDirectoryAdapter{repo: repo}
}

// UserExists implements ports.UserDirectory.
func (a *UserDirectoryAdapter) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	_, err := a.repo.GetUserByID(ctx, userID)
	if errors.Is(err, userrepo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUsersByIDs implements ports.UserDirectory with a single query.
func (a *UserDirectoryAdapter) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ports.UserSummary, error) {
	users, err := a.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]ports.UserSummary, len(users))
	for _, user := range users {
		result[user.ID] = ports.UserSummary{
			ID:    user.ID,
			Name:  buildDisplayName(user.FullName, user.Email),
			Email: user.Email,
		}
	}
	return result, nil
}

// FindAdminID implements ports.UserDirectory.
func (a *UserDirectoryAdapter) FindAdminID(ctx context.Context) (*uuid.UUID, error) {
	id, err := a.repo.FirstWithRole(ctx, userrepo.RoleAdmin)
	if errors.Is(err, userrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func buildDisplayName(fullName, email string) string {
	if name := strings.TrimSpace(fullName); name != "" {
		return name
	}
	return deriveNameFromEmail(email)
}

// deriveNameFromEmail turns "asha.rao@x" into "Asha Rao".
func deriveNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return cases.Title(language.Und).String(strings.TrimSpace(local))
}

// Compile-time check that UserDirectoryAdapter implements ports.UserDirectory
var _ ports.UserDirectory = (*UserDirectoryAdapter)(nil)
