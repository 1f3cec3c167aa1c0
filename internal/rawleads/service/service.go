// Package service implements the raw lead pipeline: ingestion, assignment,
// the call-outcome lifecycle with its one-shot conversion, and stats.
package service

import (
	"context"

	"github.com/google/uuid"

	"telecall_backend/internal/events"
	"telecall_backend/internal/rawleads/domain"
	"telecall_backend/internal/rawleads/ports"
	"telecall_backend/internal/rawleads/repository"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/apperr"
	"telecall_backend/platform/config"
	"telecall_backend/platform/logger"
	"telecall_backend/platform/phone"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// Service provides business logic for raw leads.
type Service struct {
	repo         repository.Repository
	users        ports.UserDirectory
	bus          events.Bus
	phones       phone.Normalizer
	chunkSize    int
	maxBulkItems int
	log          *logger.Logger
}

// New creates a new raw leads service.
func New(repo repository.Repository, users ports.UserDirectory, bus events.Bus, cfg config.RawLeadConfig, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		users:        users,
		bus:          bus,
		phones:       phone.NewNormalizer(cfg.GetPhoneDefaultRegion()),
		chunkSize:    cfg.GetIngestChunkSize(),
		maxBulkItems: cfg.GetMaxBulkItems(),
		log:          log,
	}
}

// Scope restricts which records a caller may read or update.
// The zero value is unrestricted.
type Scope struct {
	AssigneeID *uuid.UUID
}

// OwnedBy limits a call to records assigned to userID.
func OwnedBy(userID uuid.UUID) Scope {
	return Scope{AssigneeID: &userID}
}

func (sc Scope) permits(lead repository.RawLead) bool {
	if sc.AssigneeID == nil {
		return true
	}
	return lead.AssigneeID != nil && *lead.AssigneeID == *sc.AssigneeID
}

func (sc Scope) check(lead repository.RawLead) error {
	if sc.permits(lead) {
		return nil
	}
	return apperr.Forbidden("raw lead is not assigned to you")
}

// GetByID returns a raw lead with its assignee summary.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, scope Scope) (transport.RawLeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.RawLeadResponse{}, err
	}
	if err := scope.check(lead); err != nil {
		return transport.RawLeadResponse{}, err
	}

	resp := toResponse(lead)
	if lead.AssigneeID != nil {
		users, err := s.users.GetUsersByIDs(ctx, []uuid.UUID{*lead.AssigneeID})
		if err != nil {
			return transport.RawLeadResponse{}, err
		}
		if u, ok := users[*lead.AssigneeID]; ok {
			resp.Assignee = &transport.AssigneeSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return resp, nil
}

// List returns one page of raw leads. A scoped caller only sees their own records
// whatever assignee filter they asked for.
func (s *Service) List(ctx context.Context, req transport.ListRawLeadsRequest, scope Scope) (transport.RawLeadListResponse, error) {
	page := req.Page
	pageSize := req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	params := repository.ListParams{
		Unassigned: req.Unassigned,
		Search:     req.Search,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	}
	if req.Status != "" {
		st, ok := domain.ParseStatus(req.Status)
		if !ok {
			return transport.RawLeadListResponse{}, apperr.Validation("unknown status").WithDetails(map[string]string{"status": req.Status})
		}
		params.Status = &st
	}
	if req.AssigneeID != "" {
		id, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			return transport.RawLeadListResponse{}, apperr.Validation("assigneeId must be a uuid")
		}
		params.AssigneeID = &id
	}
	if req.BatchName != "" {
		params.BatchName = &req.BatchName
	}
	if scope.AssigneeID != nil {
		params.AssigneeID = scope.AssigneeID
		params.Unassigned = false
	}

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.RawLeadListResponse{}, err
	}

	resp := transport.RawLeadListResponse{
		Items:    make([]transport.RawLeadResponse, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  params.Offset+len(items) < total,
	}
	for i, item := range items {
		resp.Items[i] = toResponse(item)
	}
	return resp, nil
}

// ListBatches summarizes records per import batch.
func (s *Service) ListBatches(ctx context.Context) (transport.BatchListResponse, error) {
	batches, err := s.repo.ListBatches(ctx)
	if err != nil {
		return transport.BatchListResponse{}, err
	}

	resp := transport.BatchListResponse{Items: make([]transport.BatchSummaryResponse, len(batches))}
	for i, b := range batches {
		resp.Items[i] = transport.BatchSummaryResponse{
			BatchName:   b.BatchName,
			Total:       b.Total,
			Pending:     b.Pending,
			Completed:   b.Total - b.Pending,
			Converted:   b.Converted,
			LastAddedAt: b.LastAddedAt,
		}
	}
	return resp, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func toResponse(lead repository.RawLead) transport.RawLeadResponse {
	return transport.RawLeadResponse{
		ID:              lead.ID,
		Phone:           lead.Phone,
		BatchName:       lead.BatchName,
		Source:          lead.Source,
		Notes:           lead.Notes,
		Status:          lead.Status,
		AssigneeID:      lead.AssigneeID,
		ConvertedLeadID: lead.ConvertedLeadID,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}
