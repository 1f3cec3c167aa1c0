package transport

import (
	"time"

	"github.com/google/uuid"

	"telecall_backend/internal/rawleads/domain"
)

// CreateRawLeadRequest contains data for manually entering one raw lead.
type CreateRawLeadRequest struct {
	Phone      string         `json:"phone" validate:"required,phone,max=32"`
	BatchName  *string        `json:"batchName,omitempty" validate:"omitempty,max=120"`
	Source     *string        `json:"source,omitempty" validate:"omitempty,max=120"`
	Notes      *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status     *domain.Status `json:"status,omitempty" validate:"omitempty,oneof=UNTOUCHED CALL_LATER INTERESTED NOT_INTERESTED DND INVALID"`
	AssigneeID *uuid.UUID     `json:"assigneeId,omitempty"`
}

// BulkIngestItem is one contact of a bulk feed.
type BulkIngestItem struct {
	Phone string  `json:"phone" validate:"required,phone,max=32"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// BulkIngestRequest feeds many contacts sharing one batch.
type BulkIngestRequest struct {
	Items             []BulkIngestItem `json:"items" validate:"required,min=1,dive"`
	BatchName         *string          `json:"batchName,omitempty" validate:"omitempty,max=120"`
	Source            *string          `json:"source,omitempty" validate:"omitempty,max=120"`
	DefaultAssigneeID *uuid.UUID       `json:"defaultAssigneeId,omitempty"`
}

// BulkIngestResponse reports how a feed was absorbed.
type BulkIngestResponse struct {
	Received          int    `json:"received"`
	Inserted          int    `json:"inserted"`
	DuplicatesSkipped int    `json:"duplicatesSkipped"`
	InvalidSkipped    int    `json:"invalidSkipped,omitempty"`
	Message           string `json:"message,omitempty"`
}

// ImportOptions carries the form fields of a CSV import.
type ImportOptions struct {
	BatchName         *string    `form:"batchName" validate:"omitempty,max=120"`
	Source            *string    `form:"source" validate:"omitempty,max=120"`
	DefaultAssigneeID *uuid.UUID `form:"-"`
}

// AssignBulkRequest hands raw leads to one telecaller.
type AssignBulkRequest struct {
	IDs        []uuid.UUID `json:"ids" validate:"required,min=1,max=10000"`
	AssigneeID uuid.UUID   `json:"assigneeId" validate:"required"`
}

// AssignBulkResponse reports the number of records that existed and were updated.
type AssignBulkResponse struct {
	UpdatedCount int `json:"updatedCount"`
}

// UpdateRawLeadRequest contains the editable fields. Omitted fields stay unchanged.
type UpdateRawLeadRequest struct {
	Status    *domain.Status `json:"status,omitempty" validate:"omitempty,oneof=UNTOUCHED CALL_LATER INTERESTED NOT_INTERESTED DND INVALID"`
	Notes     *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
	BatchName *string        `json:"batchName,omitempty" validate:"omitempty,max=120"`
	Source    *string        `json:"source,omitempty" validate:"omitempty,max=120"`
}

// RemoveBulkRequest deletes many raw leads.
type RemoveBulkRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=10000"`
}

// RemoveBulkResponse reports how many records were deleted.
type RemoveBulkResponse struct {
	DeletedCount int `json:"deletedCount"`
}

// ListRawLeadsRequest contains the query parameters of the list endpoint.
type ListRawLeadsRequest struct {
	Page       int    `form:"page" validate:"omitempty,min=1"`
	PageSize   int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
	Status     string `form:"status" validate:"omitempty,oneof=UNTOUCHED CALL_LATER INTERESTED NOT_INTERESTED DND INVALID"`
	AssigneeID string `form:"assigneeId" validate:"omitempty,uuid"`
	Unassigned bool   `form:"unassigned"`
	BatchName  string `form:"batchName" validate:"omitempty,max=120"`
	Search     string `form:"search" validate:"omitempty,max=32"`
}

// StatsRequest contains the optional creation-date bounds of the stats report.
type StatsRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// AssigneeSummary identifies the telecaller owning a raw lead.
type AssigneeSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// RawLeadResponse represents a raw lead in API responses.
type RawLeadResponse struct {
	ID              uuid.UUID        `json:"id"`
	Phone           string           `json:"phone"`
	BatchName       *string          `json:"batchName,omitempty"`
	Source          *string          `json:"source,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	Status          domain.Status    `json:"status"`
	AssigneeID      *uuid.UUID       `json:"assigneeId"`
	Assignee        *AssigneeSummary `json:"assignee,omitempty"`
	ConvertedLeadID *uuid.UUID       `json:"convertedLeadId"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// RawLeadListResponse wraps one page of raw leads.
type RawLeadListResponse struct {
	Items    []RawLeadResponse `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	HasMore  bool              `json:"hasMore"`
}

// StatsTotals are the pipeline-wide counts of the stats report.
type StatsTotals struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	Converted  int `json:"converted"`
}

// AssigneeStats is one leaderboard row.
type AssigneeStats struct {
	AssigneeID uuid.UUID `json:"assigneeId"`
	Name       string    `json:"name"`
	Assigned   int       `json:"assigned"`
	Completed  int       `json:"completed"`
	Pending    int       `json:"pending"`
	Converted  int       `json:"converted"`
}

// StatsResponse is the workload and outcome report.
type StatsResponse struct {
	Totals     StatsTotals     `json:"totals"`
	ByAssignee []AssigneeStats `json:"byAssignee"`
}

// BatchSummaryResponse summarizes one import batch.
type BatchSummaryResponse struct {
	BatchName   *string   `json:"batchName"`
	Total       int       `json:"total"`
	Pending     int       `json:"pending"`
	Completed   int       `json:"completed"`
	Converted   int       `json:"converted"`
	LastAddedAt time.Time `json:"lastAddedAt"`
}

// BatchListResponse wraps the batch summaries.
type BatchListResponse struct {
	Items []BatchSummaryResponse `json:"items"`
}
