// Package repository reads CRM users for other bounded contexts.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("not found")

// RoleAdmin is the role that owns conversions nobody else can claim.
const RoleAdmin = "admin"

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserReader is the read side other domains adapt.
type UserReader interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error)
	FirstWithRole(ctx context.Context, role string) (uuid.UUID, error)
}

type Repository struct {
	db DB
}

func New(db DB) *Repository {
	return &Repository{db: db}
}

type User struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	CreatedAt time.Time
}

func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	var user User
	err := r.db.QueryRow(ctx, `
		SELECT id, email, full_name, created_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.Email, &user.FullName, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ListByIDs returns the users that exist among ids, in no particular order.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, email, full_name, created_at
		FROM users WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0, len(ids))
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.FullName, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return users, nil
}

// FirstWithRole returns the oldest user holding role.
func (r *Repository) FirstWithRole(ctx context.Context, role string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		SELECT u.id
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		WHERE ur.role = $1
		ORDER BY u.created_at, u.id
		LIMIT 1
	`, role).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
