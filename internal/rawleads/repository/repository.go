package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"telecall_backend/internal/rawleads/domain"
	"telecall_backend/platform/apperr"
)

const (
	opCreate          = "rawleads.repository.Create"
	opInsertMany      = "rawleads.repository.InsertMany"
	opExistingPhones  = "rawleads.repository.ExistingPhones"
	opGetByID         = "rawleads.repository.GetByID"
	opList            = "rawleads.repository.List"
	opListBatches     = "rawleads.repository.ListBatches"
	opAssignMany      = "rawleads.repository.AssignMany"
	opUpdate          = "rawleads.repository.Update"
	opConvert         = "rawleads.repository.ConvertAndUpdate"
	opDelete          = "rawleads.repository.Delete"
	opDeleteMany      = "rawleads.repository.DeleteMany"
	opCountOutcomes   = "rawleads.repository.CountOutcomes"
	opCountAssignees  = "rawleads.repository.CountAssigneeOutcomes"
	rawLeadNotFound   = "raw lead not found"
	phoneConstraint   = "raw_leads_phone_key"
	uniqueViolation   = "23505"
	foreignKeyMissing = "23503"
)

const rawLeadColumns = `id, phone, batch_name, source, notes, status, assignee_id, converted_lead_id, created_at, updated_at`

// DB is the subset of pgxpool.Pool used by Repo. pgxmock satisfies it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	db DB
}

// New creates a new raw leads repository.
func New(db DB) *Repo {
	return &Repo{db: db}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanRawLead(row pgx.Row) (RawLead, error) {
	var lead RawLead
	var status string
	err := row.Scan(
		&lead.ID, &lead.Phone, &lead.BatchName, &lead.Source, &lead.Notes, &status,
		&lead.AssigneeID, &lead.ConvertedLeadID, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return RawLead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

func statusParam(s *domain.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func isConstraintViolation(err error, code string) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr, true
	}
	return nil, false
}

// Create inserts a single raw lead. A phone that already exists yields a conflict.
func (r *Repo) Create(ctx context.Context, params CreateParams) (RawLead, error) {
	query := `
		INSERT INTO raw_leads (phone, batch_name, source, notes, status, assignee_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + rawLeadColumns

	lead, err := scanRawLead(r.db.QueryRow(ctx, query,
		params.Phone, params.BatchName, params.Source, params.Notes, string(params.Status), params.AssigneeID,
	))
	if err != nil {
		if pgErr, ok := isConstraintViolation(err, uniqueViolation); ok && (pgErr.ConstraintName == "" || pgErr.ConstraintName == phoneConstraint) {
			return RawLead{}, apperr.Conflict("phone already exists").
				WithDetails(map[string]string{"phone": params.Phone}).
				WithOp(opCreate)
		}
		if _, ok := isConstraintViolation(err, foreignKeyMissing); ok {
			return RawLead{}, apperr.Validation("assignee does not exist").WithOp(opCreate)
		}
		return RawLead{}, apperr.Wrap(apperr.KindInternal, "create raw lead failed", err).WithOp(opCreate)
	}
	return lead, nil
}

// InsertMany inserts all items in one statement and returns how many rows
// were actually written. Phones already present are skipped by the unique
// constraint, including ones inserted concurrently by another request.
func (r *Repo) InsertMany(ctx context.Context, params BulkInsertParams) (int, error) {
	if len(params.Items) == 0 {
		return 0, nil
	}

	phones := make([]string, len(params.Items))
	notes := make([]*string, len(params.Items))
	for i, item := range params.Items {
		phones[i] = item.Phone
		notes[i] = item.Notes
	}

	query := `
		INSERT INTO raw_leads (phone, notes, batch_name, source, status, assignee_id)
		SELECT item.phone, item.notes, $3, $4, $5, $6
		FROM unnest($1::text[], $2::text[]) AS item(phone, notes)
		ON CONFLICT (phone) DO NOTHING`

	tag, err := r.db.Exec(ctx, query, phones, notes, params.BatchName, params.Source, string(params.Status), params.AssigneeID)
	if err != nil {
		if _, ok := isConstraintViolation(err, foreignKeyMissing); ok {
			return 0, apperr.Validation("assignee does not exist").WithOp(opInsertMany)
		}
		return 0, apperr.Wrap(apperr.KindInternal, "bulk insert raw leads failed", err).WithOp(opInsertMany)
	}
	return int(tag.RowsAffected()), nil
}

// ExistingPhones returns the subset of phones already stored.
func (r *Repo) ExistingPhones(ctx context.Context, phones []string) ([]string, error) {
	if len(phones) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, `SELECT phone FROM raw_leads WHERE phone = ANY($1)`, phones)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "lookup existing phones failed", err).WithOp(opExistingPhones)
	}
	defer rows.Close()

	existing := make([]string, 0, len(phones))
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan existing phone failed", err).WithOp(opExistingPhones)
		}
		existing = append(existing, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate existing phones failed", err).WithOp(opExistingPhones)
	}
	return existing, nil
}

// GetByID retrieves a raw lead by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (RawLead, error) {
	query := `SELECT ` + rawLeadColumns + ` FROM raw_leads WHERE id = $1`

	lead, err := scanRawLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawLead{}, apperr.NotFound(rawLeadNotFound).WithOp(opGetByID)
		}
		return RawLead{}, apperr.Wrap(apperr.KindInternal, "get raw lead failed", err).WithOp(opGetByID)
	}
	return lead, nil
}

const listWhere = `
	WHERE ($1::text IS NULL OR status = $1)
	  AND ($2::uuid IS NULL OR assignee_id = $2)
	  AND (NOT $3::boolean OR assignee_id IS NULL)
	  AND ($4::text IS NULL OR batch_name = $4)
	  AND ($5::text = '' OR phone ILIKE '%' || $5 || '%')`

// List returns one page of raw leads, newest first, plus the total match count.
func (r *Repo) List(ctx context.Context, params ListParams) ([]RawLead, int, error) {
	args := []any{statusParam(params.Status), params.AssigneeID, params.Unassigned, params.BatchName, params.Search}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM raw_leads`+listWhere, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count raw leads failed", err).WithOp(opList)
	}

	query := `SELECT ` + rawLeadColumns + ` FROM raw_leads` + listWhere + `
		ORDER BY created_at DESC, id
		LIMIT $6 OFFSET $7`

	rows, err := r.db.Query(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list raw leads failed", err).WithOp(opList)
	}
	defer rows.Close()

	items := make([]RawLead, 0, params.Limit)
	for rows.Next() {
		lead, err := scanRawLead(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(apperr.KindInternal, "scan raw lead failed", err).WithOp(opList)
		}
		items = append(items, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "iterate raw leads failed", err).WithOp(opList)
	}
	return items, total, nil
}

// ListBatches summarizes records per batch name, most recently fed batch first.
func (r *Repo) ListBatches(ctx context.Context) ([]BatchSummary, error) {
	query := `
		SELECT batch_name,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = ANY($1)),
		       COUNT(*) FILTER (WHERE converted_lead_id IS NOT NULL),
		       MAX(created_at)
		FROM raw_leads
		GROUP BY batch_name
		ORDER BY MAX(created_at) DESC`

	rows, err := r.db.Query(ctx, query, domain.StatusStrings(domain.PendingStatuses()))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list batches failed", err).WithOp(opListBatches)
	}
	defer rows.Close()

	var out []BatchSummary
	for rows.Next() {
		var b BatchSummary
		if err := rows.Scan(&b.BatchName, &b.Total, &b.Pending, &b.Converted, &b.LastAddedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan batch failed", err).WithOp(opListBatches)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate batches failed", err).WithOp(opListBatches)
	}
	return out, nil
}

// AssignMany sets the assignee on every matching id and returns the number updated.
func (r *Repo) AssignMany(ctx context.Context, ids []uuid.UUID, assigneeID uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE raw_leads SET assignee_id = $2, updated_at = now()
		WHERE id = ANY($1)`, ids, assigneeID)
	if err != nil {
		if _, ok := isConstraintViolation(err, foreignKeyMissing); ok {
			return 0, apperr.Validation("assignee does not exist").WithOp(opAssignMany)
		}
		return 0, apperr.Wrap(apperr.KindInternal, "assign raw leads failed", err).WithOp(opAssignMany)
	}
	return int(tag.RowsAffected()), nil
}

const updateSet = `
	status = COALESCE($2, status),
	notes = COALESCE($3, notes),
	batch_name = COALESCE($4, batch_name),
	source = COALESCE($5, source),
	updated_at = now()`

// Update applies the non-nil fields of params.
func (r *Repo) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (RawLead, error) {
	query := `UPDATE raw_leads SET` + updateSet + `
		WHERE id = $1
		RETURNING ` + rawLeadColumns

	lead, err := scanRawLead(r.db.QueryRow(ctx, query,
		id, statusParam(params.Status), params.Notes, params.BatchName, params.Source,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawLead{}, apperr.NotFound(rawLeadNotFound).WithOp(opUpdate)
		}
		return RawLead{}, apperr.Wrap(apperr.KindInternal, "update raw lead failed", err).WithOp(opUpdate)
	}
	return lead, nil
}

// ConvertAndUpdate inserts the cold lead and links it in a single transaction.
// The link only succeeds while converted_lead_id is still NULL; concurrent
// converters block on the row lock and then see it already set.
func (r *Repo) ConvertAndUpdate(ctx context.Context, id uuid.UUID, params UpdateParams, lead ColdLead) (RawLead, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return RawLead{}, false, apperr.Wrap(apperr.KindInternal, "begin conversion failed", err).WithOp(opConvert)
	}
	done := false
	defer func() {
		if !done {
			_ = tx.Rollback(ctx)
		}
	}()

	var leadID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO leads (first_name, last_name, email, mobile, temperature, source, description, created_by_id, assignee_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL)
		RETURNING id`,
		lead.FirstName, lead.LastName, lead.Email, lead.Mobile, lead.Temperature, lead.Source, lead.Description, lead.CreatedByID,
	).Scan(&leadID)
	if err != nil {
		return RawLead{}, false, apperr.Wrap(apperr.KindInternal, "create cold lead failed", err).WithOp(opConvert)
	}

	query := `UPDATE raw_leads SET` + updateSet + `,
		assignee_id = NULL,
		converted_lead_id = $6
		WHERE id = $1 AND converted_lead_id IS NULL
		RETURNING ` + rawLeadColumns

	updated, err := scanRawLead(tx.QueryRow(ctx, query,
		id, statusParam(params.Status), params.Notes, params.BatchName, params.Source, leadID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawLead{}, false, unclaimed(ctx, tx, id)
		}
		return RawLead{}, false, apperr.Wrap(apperr.KindInternal, "link converted lead failed", err).WithOp(opConvert)
	}

	done = true
	if err := tx.Commit(ctx); err != nil {
		return RawLead{}, false, apperr.Wrap(apperr.KindInternal, "commit conversion failed", err).WithOp(opConvert)
	}
	return updated, true, nil
}

// unclaimed tells a record converted by another writer (nil) from one that
// was deleted since it was read.
func unclaimed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM raw_leads WHERE id = $1)`, id).Scan(&exists); err != nil {
		return apperr.Wrap(apperr.KindInternal, "check raw lead failed", err).WithOp(opConvert)
	}
	if !exists {
		return apperr.NotFound(rawLeadNotFound).WithOp(opConvert)
	}
	return nil
}

// Delete removes a raw lead and returns it.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (RawLead, error) {
	lead, err := scanRawLead(r.db.QueryRow(ctx, `DELETE FROM raw_leads WHERE id = $1 RETURNING `+rawLeadColumns, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawLead{}, apperr.NotFound(rawLeadNotFound).WithOp(opDelete)
		}
		return RawLead{}, apperr.Wrap(apperr.KindInternal, "delete raw lead failed", err).WithOp(opDelete)
	}
	return lead, nil
}

// DeleteMany removes every matching id and returns the number deleted.
func (r *Repo) DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM raw_leads WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "delete raw leads failed", err).WithOp(opDeleteMany)
	}
	return int(tag.RowsAffected()), nil
}

const statsWhere = `
	  ($1::timestamptz IS NULL OR created_at >= $1)
	  AND ($2::timestamptz IS NULL OR created_at <= $2)
	  AND ($3::uuid IS NULL OR assignee_id = $3)`

// CountOutcomes groups matching records by status, assignment and conversion.
func (r *Repo) CountOutcomes(ctx context.Context, filter StatsFilter) ([]OutcomeCount, error) {
	query := `
		SELECT status, assignee_id IS NOT NULL, converted_lead_id IS NOT NULL, COUNT(*)
		FROM raw_leads
		WHERE` + statsWhere + `
		GROUP BY 1, 2, 3`

	rows, err := r.db.Query(ctx, query, filter.From, filter.To, filter.AssigneeID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "count outcomes failed", err).WithOp(opCountOutcomes)
	}
	defer rows.Close()

	var out []OutcomeCount
	for rows.Next() {
		var c OutcomeCount
		var status string
		if err := rows.Scan(&status, &c.Assigned, &c.Converted, &c.Count); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan outcome failed", err).WithOp(opCountOutcomes)
		}
		c.Status = domain.Status(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate outcomes failed", err).WithOp(opCountOutcomes)
	}
	return out, nil
}

// CountAssigneeOutcomes groups assigned records by assignee, status and conversion.
func (r *Repo) CountAssigneeOutcomes(ctx context.Context, filter StatsFilter) ([]AssigneeOutcomeCount, error) {
	query := `
		SELECT assignee_id, status, converted_lead_id IS NOT NULL, COUNT(*), MIN(created_at) AS first_seen
		FROM raw_leads
		WHERE assignee_id IS NOT NULL AND` + statsWhere + `
		GROUP BY 1, 2, 3
		ORDER BY first_seen ASC, assignee_id`

	rows, err := r.db.Query(ctx, query, filter.From, filter.To, filter.AssigneeID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "count assignee outcomes failed", err).WithOp(opCountAssignees)
	}
	defer rows.Close()

	var out []AssigneeOutcomeCount
	for rows.Next() {
		var c AssigneeOutcomeCount
		var status string
		var firstSeen time.Time
		if err := rows.Scan(&c.AssigneeID, &status, &c.Converted, &c.Count, &firstSeen); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "scan assignee outcome failed", err).WithOp(opCountAssignees)
		}
		c.Status = domain.Status(status)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "iterate assignee outcomes failed", err).WithOp(opCountAssignees)
	}
	return out, nil
}
