package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecall_backend/internal/rawleads/domain"
	"telecall_backend/platform/apperr"
)

var rawLeadCols = []string{
	"id", "phone", "batch_name", "source", "notes", "status",
	"assignee_id", "converted_lead_id", "created_at", "updated_at",
}

func strPtr(s string) *string { return &s }

func rawLeadRow(id uuid.UUID, phone string, status domain.Status, assignee, converted *uuid.UUID) *pgxmock.Rows {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return pgxmock.NewRows(rawLeadCols).AddRow(
		id, phone, strPtr("march"), (*string)(nil), (*string)(nil), string(status),
		assignee, converted, now, now,
	)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *Repo) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, New(pool)
}

func coldLead() ColdLead {
	return ColdLead{
		FirstName:   "Unknown",
		LastName:    "Caller",
		Email:       "910001@rawleads.invalid",
		Mobile:      "+910001",
		Temperature: "cold",
		Source:      "other",
		Description: "Converted from raw lead marked not interested",
		CreatedByID: uuid.New(),
	}
}

func TestConvertAndUpdateClaimsUnconvertedRecord(t *testing.T) {
	pool, repo := newMockRepo(t)
	id := uuid.New()
	leadID := uuid.New()
	status := domain.StatusNotInterested

	pool.ExpectBegin()
	pool.ExpectQuery("INSERT INTO leads").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(leadID))
	pool.ExpectQuery("UPDATE raw_leads SET").
		WillReturnRows(rawLeadRow(id, "+910001", status, (*uuid.UUID)(nil), &leadID))
	pool.ExpectCommit()

	updated, claimed, err := repo.ConvertAndUpdate(context.Background(), id, UpdateParams{Status: &status}, coldLead())
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, status, updated.Status)
	require.NotNil(t, updated.ConvertedLeadID)
	assert.Equal(t, leadID, *updated.ConvertedLeadID)
	assert.Nil(t, updated.AssigneeID)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestConvertAndUpdateRollsBackWhenAlreadyConverted(t *testing.T) {
	pool, repo := newMockRepo(t)
	status := domain.StatusNotInterested

	pool.ExpectBegin()
	pool.ExpectQuery("INSERT INTO leads").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	pool.ExpectQuery("UPDATE raw_leads SET").
		WillReturnRows(pgxmock.NewRows(rawLeadCols))
	pool.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	pool.ExpectRollback()

	_, claimed, err := repo.ConvertAndUpdate(context.Background(), uuid.New(), UpdateParams{Status: &status}, coldLead())
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestConvertAndUpdateReportsDeletedRecord(t *testing.T) {
	pool, repo := newMockRepo(t)
	status := domain.StatusNotInterested

	pool.ExpectBegin()
	pool.ExpectQuery("INSERT INTO leads").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	pool.ExpectQuery("UPDATE raw_leads SET").
		WillReturnRows(pgxmock.NewRows(rawLeadCols))
	pool.ExpectQuery("SELECT EXISTS").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	pool.ExpectRollback()

	_, claimed, err := repo.ConvertAndUpdate(context.Background(), uuid.New(), UpdateParams{Status: &status}, coldLead())
	require.Error(t, err)
	assert.False(t, claimed)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestConvertAndUpdateRollsBackWhenLeadInsertFails(t *testing.T) {
	pool, repo := newMockRepo(t)

	pool.ExpectBegin()
	pool.ExpectQuery("INSERT INTO leads").WillReturnError(assert.AnError)
	pool.ExpectRollback()

	_, claimed, err := repo.ConvertAndUpdate(context.Background(), uuid.New(), UpdateParams{}, coldLead())
	require.Error(t, err)
	assert.False(t, claimed)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	pool, repo := newMockRepo(t)

	pool.ExpectQuery("INSERT INTO raw_leads").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "raw_leads_phone_key"})

	_, err := repo.Create(context.Background(), CreateParams{Phone: "+910001", Status: domain.StatusUntouched})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, map[string]string{"phone": "+910001"}, appErr.Details)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestCreateReturnsInsertedRow(t *testing.T) {
	pool, repo := newMockRepo(t)
	id := uuid.New()

	pool.ExpectQuery("INSERT INTO raw_leads").
		WillReturnRows(rawLeadRow(id, "+910002", domain.StatusUntouched, (*uuid.UUID)(nil), (*uuid.UUID)(nil)))

	lead, err := repo.Create(context.Background(), CreateParams{Phone: "+910002", Status: domain.StatusUntouched})
	require.NoError(t, err)
	assert.Equal(t, id, lead.ID)
	assert.Equal(t, domain.StatusUntouched, lead.Status)
	assert.False(t, lead.IsConverted())
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInsertManyReturnsRowsAffected(t *testing.T) {
	pool, repo := newMockRepo(t)

	pool.ExpectExec("ON CONFLICT \\(phone\\) DO NOTHING").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	n, err := repo.InsertMany(context.Background(), BulkInsertParams{
		Items:  []BulkItem{{Phone: "+910001"}, {Phone: "+910002"}, {Phone: "+910003"}},
		Status: domain.StatusUntouched,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestInsertManySkipsEmptyInput(t *testing.T) {
	pool, repo := newMockRepo(t)

	n, err := repo.InsertMany(context.Background(), BulkInsertParams{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	pool, repo := newMockRepo(t)

	pool.ExpectQuery("FROM raw_leads WHERE id").WillReturnRows(pgxmock.NewRows(rawLeadCols))

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestExistingPhones(t *testing.T) {
	pool, repo := newMockRepo(t)

	pool.ExpectQuery("SELECT phone FROM raw_leads").
		WillReturnRows(pgxmock.NewRows([]string{"phone"}).AddRow("+910001"))

	existing, err := repo.ExistingPhones(context.Background(), []string{"+910001", "+910002"})
	require.NoError(t, err)
	assert.Equal(t, []string{"+910001"}, existing)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestAssignManyReturnsUpdatedCount(t *testing.T) {
	pool, repo := newMockRepo(t)

	pool.ExpectExec("UPDATE raw_leads SET assignee_id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := repo.AssignMany(context.Background(), []uuid.UUID{uuid.New(), uuid.New()}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestCountOutcomesScansGroups(t *testing.T) {
	pool, repo := newMockRepo(t)

	pool.ExpectQuery("GROUP BY 1, 2, 3").
		WillReturnRows(pgxmock.NewRows([]string{"status", "assigned", "converted", "count"}).
			AddRow("UNTOUCHED", true, false, 3).
			AddRow("NOT_INTERESTED", false, true, 1))

	got, err := repo.CountOutcomes(context.Background(), StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, []OutcomeCount{
		{Status: domain.StatusUntouched, Assigned: true, Count: 3},
		{Status: domain.StatusNotInterested, Converted: true, Count: 1},
	}, got)
	assert.NoError(t, pool.ExpectationsWereMet())
}
