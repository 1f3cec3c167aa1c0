package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestGetUserByIDNotFound(t *testing.T) {
	mock := newMock(t)
	id := uuid.New()
	mock.ExpectQuery("FROM users WHERE id = \\$1").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "full_name", "created_at"}))

	_, err := New(mock).GetUserByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByIDs(t *testing.T) {
	mock := newMock(t)
	a, b := uuid.New(), uuid.New()
	now := time.Now()
	mock.ExpectQuery("WHERE id = ANY").
		WithArgs([]uuid.UUID{a, b}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "full_name", "created_at"}).
			AddRow(a, "asha@example.com", "Asha Rao", now))

	users, err := New(mock).ListByIDs(context.Background(), []uuid.UUID{a, b})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Asha Rao", users[0].FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByIDsEmptySkipsQuery(t *testing.T) {
	mock := newMock(t)
	users, err := New(mock).ListByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFirstWithRole(t *testing.T) {
	mock := newMock(t)
	admin := uuid.New()
	mock.ExpectQuery("JOIN user_roles").
		WithArgs(RoleAdmin).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(admin))
	mock.ExpectQuery("JOIN user_roles").
		WithArgs(RoleAdmin).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	repo := New(mock)
	id, err := repo.FirstWithRole(context.Background(), RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, admin, id)

	_, err = repo.FirstWithRole(context.Background(), RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
