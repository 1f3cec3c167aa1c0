package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"telecall_backend/internal/rawleads/domain"
)

// RawLead is an unqualified phone record awaiting telecalling.
type RawLead struct {
	ID              uuid.UUID     `db:"id"`
	Phone           string        `db:"phone"`
	BatchName       *string       `db:"batch_name"`
	Source          *string       `db:"source"`
	Notes           *string       `db:"notes"`
	Status          domain.Status `db:"status"`
	AssigneeID      *uuid.UUID    `db:"assignee_id"`
	ConvertedLeadID *uuid.UUID    `db:"converted_lead_id"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

// IsConverted reports whether a CRM lead was already created from this record.
func (r RawLead) IsConverted() bool {
	return r.ConvertedLeadID != nil
}

// CreateParams contains parameters for creating a single raw lead.
type CreateParams struct {
	Phone      string
	BatchName  *string
	Source     *string
	Notes      *string
	Status     domain.Status
	AssigneeID *uuid.UUID
}

// BulkItem is one phone in a bulk insert.
type BulkItem struct {
	Phone string
	Notes *string
}

// BulkInsertParams inserts many phones sharing the same batch attributes.
// Phones that already exist are skipped silently.
type BulkInsertParams struct {
	Items      []BulkItem
	BatchName  *string
	Source     *string
	Status     domain.Status
	AssigneeID *uuid.UUID
}

// UpdateParams contains the mutable fields. Nil means unchanged.
type UpdateParams struct {
	Status    *domain.Status
	Notes     *string
	BatchName *string
	Source    *string
}

// ColdLead is the CRM lead created when a raw lead is converted.
type ColdLead struct {
	FirstName   string
	LastName    string
	Email       string
	Mobile      string
	Temperature string
	Source      string
	Description string
	CreatedByID uuid.UUID
}

// ListParams filters and paginates the raw lead list.
type ListParams struct {
	Status     *domain.Status
	AssigneeID *uuid.UUID
	Unassigned bool
	BatchName  *string
	Search     string
	Offset     int
	Limit      int
}

// StatsFilter bounds the records counted by the stats queries.
// From and To are inclusive. A nil bound is open.
type StatsFilter struct {
	From       *time.Time
	To         *time.Time
	AssigneeID *uuid.UUID
}

// OutcomeCount is one group of the status x assigned x converted breakdown.
type OutcomeCount struct {
	Status    domain.Status
	Assigned  bool
	Converted bool
	Count     int
}

// AssigneeOutcomeCount is one group of the per-assignee breakdown.
type AssigneeOutcomeCount struct {
	AssigneeID uuid.UUID
	Status     domain.Status
	Converted  bool
	Count      int
}

// BatchSummary aggregates the records of one import batch.
type BatchSummary struct {
	BatchName   *string
	Total       int
	Pending     int
	Converted   int
	LastAddedAt time.Time
}

// RawLeadReader provides read operations for raw leads.
type RawLeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (RawLead, error)
	List(ctx context.Context, params ListParams) ([]RawLead, int, error)
	ExistingPhones(ctx context.Context, phones []string) ([]string, error)
	ListBatches(ctx context.Context) ([]BatchSummary, error)
}

// RawLeadWriter provides write operations for raw leads.
type RawLeadWriter interface {
	Create(ctx context.Context, params CreateParams) (RawLead, error)
	InsertMany(ctx context.Context, params BulkInsertParams) (int, error)
	AssignMany(ctx context.Context, ids []uuid.UUID, assigneeID uuid.UUID) (int, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateParams) (RawLead, error)
	// ConvertAndUpdate creates the cold lead and applies params in one
	// transaction, but only while the raw lead is still unconverted.
	// claimed is false when another writer converted it first; nothing
	// is written in that case. A raw lead that no longer exists is
	// reported as NotFound.
	ConvertAndUpdate(ctx context.Context, id uuid.UUID, params UpdateParams, lead ColdLead) (updated RawLead, claimed bool, err error)
	Delete(ctx context.Context, id uuid.UUID) (RawLead, error)
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error)
}

// StatsReader provides the aggregate queries behind the stats report.
type StatsReader interface {
	CountOutcomes(ctx context.Context, filter StatsFilter) ([]OutcomeCount, error)
	// CountAssigneeOutcomes returns assigned records only, ordered so that
	// each assignee first appears at the position of its earliest record.
	CountAssigneeOutcomes(ctx context.Context, filter StatsFilter) ([]AssigneeOutcomeCount, error)
}

// Repository combines all raw lead repository operations.
type Repository interface {
	RawLeadReader
	RawLeadWriter
	StatsReader
}
