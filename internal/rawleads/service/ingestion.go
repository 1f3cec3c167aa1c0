package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"telecall_backend/internal/events"
	"telecall_backend/internal/rawleads/domain"
	"telecall_backend/internal/rawleads/repository"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/apperr"
)

const allDuplicatesMessage = "all phone numbers already exist"

// Create stores one manually entered raw lead. A phone that already exists
// yields a Conflict naming it.
func (s *Service) Create(ctx context.Context, req transport.CreateRawLeadRequest) (transport.RawLeadResponse, error) {
	normalized := s.phones.Normalize(req.Phone)
	if normalized == "" {
		return transport.RawLeadResponse{}, apperr.Validation("phone is required")
	}

	status := domain.StatusUntouched
	if req.Status != nil {
		if !req.Status.IsKnown() {
			return transport.RawLeadResponse{}, apperr.Validation("unknown status").WithDetails(map[string]string{"status": string(*req.Status)})
		}
		status = *req.Status
	}

	if req.AssigneeID != nil {
		if err := s.ensureUser(ctx, *req.AssigneeID); err != nil {
			return transport.RawLeadResponse{}, err
		}
	}

	lead, err := s.repo.Create(ctx, repository.CreateParams{
		Phone:      normalized,
		BatchName:  req.BatchName,
		Source:     req.Source,
		Notes:      req.Notes,
		Status:     status,
		AssigneeID: req.AssigneeID,
	})
	if err != nil {
		return transport.RawLeadResponse{}, err
	}
	return toResponse(lead), nil
}

// BulkIngest deduplicates a feed against itself and the store, then inserts
// the remainder in chunks. Phones that lose an insert race to a concurrent
// feed are reported as duplicates.
func (s *Service) BulkIngest(ctx context.Context, req transport.BulkIngestRequest) (transport.BulkIngestResponse, error) {
	received := len(req.Items)
	if received == 0 {
		return transport.BulkIngestResponse{}, apperr.Validation("items must not be empty")
	}
	if s.maxBulkItems > 0 && received > s.maxBulkItems {
		return transport.BulkIngestResponse{}, apperr.Validation(fmt.Sprintf("at most %d items per request", s.maxBulkItems)).
			WithDetails(map[string]int{"received": received, "max": s.maxBulkItems})
	}
	if req.DefaultAssigneeID != nil {
		if err := s.ensureUser(ctx, *req.DefaultAssigneeID); err != nil {
			return transport.BulkIngestResponse{}, err
		}
	}

	candidates, invalid := s.dedupe(req.Items)
	if len(candidates) == 0 {
		return transport.BulkIngestResponse{}, apperr.Validation("no valid phone numbers in request")
	}

	existing, err := s.existingPhones(ctx, candidates)
	if err != nil {
		return transport.BulkIngestResponse{}, err
	}

	fresh := make([]repository.BulkItem, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := existing[c.Phone]; !ok {
			fresh = append(fresh, c)
		}
	}

	resp := transport.BulkIngestResponse{Received: received, InvalidSkipped: invalid}
	if len(fresh) == 0 {
		resp.DuplicatesSkipped = received - invalid
		resp.Message = allDuplicatesMessage
		s.ingested(ctx, req.BatchName, resp)
		return resp, nil
	}

	inserted, err := s.insertChunks(ctx, fresh, req)
	if err != nil {
		return transport.BulkIngestResponse{}, err
	}

	resp.Inserted = inserted
	resp.DuplicatesSkipped = received - invalid - inserted
	s.ingested(ctx, req.BatchName, resp)
	return resp, nil
}

// ingested logs and publishes the outcome of a feed, including feeds where
// every phone already existed.
func (s *Service) ingested(ctx context.Context, batchName *string, resp transport.BulkIngestResponse) {
	s.log.WithContext(ctx).IngestionCompleted(batchLabel(batchName), resp.Received, resp.Inserted, resp.DuplicatesSkipped)
	s.publish(ctx, events.RawLeadsIngested{
		BaseEvent:         events.NewBaseEvent(),
		BatchName:         batchName,
		Received:          resp.Received,
		Inserted:          resp.Inserted,
		DuplicatesSkipped: resp.DuplicatesSkipped,
	})
}

// dedupe normalizes phones and keeps the first occurrence of each.
func (s *Service) dedupe(items []transport.BulkIngestItem) ([]repository.BulkItem, int) {
	seen := make(map[string]struct{}, len(items))
	out := make([]repository.BulkItem, 0, len(items))
	invalid := 0
	for _, item := range items {
		p := s.phones.Normalize(item.Phone)
		if p == "" {
			invalid++
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, repository.BulkItem{Phone: p, Notes: item.Notes})
	}
	return out, invalid
}

func (s *Service) existingPhones(ctx context.Context, items []repository.BulkItem) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	for _, chunk := range chunk(items, s.chunkSize) {
		phones := make([]string, len(chunk))
		for i, c := range chunk {
			phones[i] = c.Phone
		}
		found, err := s.repo.ExistingPhones(ctx, phones)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			existing[p] = struct{}{}
		}
	}
	return existing, nil
}

func (s *Service) insertChunks(ctx context.Context, items []repository.BulkItem, req transport.BulkIngestRequest) (int, error) {
	inserted := 0
	for _, c := range chunk(items, s.chunkSize) {
		n, err := s.repo.InsertMany(ctx, repository.BulkInsertParams{
			Items:      c,
			BatchName:  req.BatchName,
			Source:     req.Source,
			Status:     domain.StatusUntouched,
			AssigneeID: req.DefaultAssigneeID,
		})
		if err != nil {
			if inserted > 0 {
				s.log.WithContext(ctx).Warn("bulk ingest stopped after partial insert", "inserted", inserted, "error", err)
			}
			return inserted, err
		}
		inserted += n
	}
	return inserted, nil
}

func (s *Service) ensureUser(ctx context.Context, id uuid.UUID) error {
	ok, err := s.users.UserExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("assignee does not exist").WithDetails(map[string]string{"assigneeId": id.String()})
	}
	return nil
}

func chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) <= size {
		return [][]T{items}
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}

func batchLabel(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}
