package service

import (
	"context"

	"github.com/google/uuid"

	"telecall_backend/internal/events"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/apperr"
)

// AssignBulk overwrites the assignee of every listed raw lead that exists.
// Unknown ids are left out of the count.
func (s *Service) AssignBulk(ctx context.Context, req transport.AssignBulkRequest) (transport.AssignBulkResponse, error) {
	if len(req.IDs) == 0 {
		return transport.AssignBulkResponse{}, apperr.Validation("ids must not be empty")
	}
	if req.AssigneeID == uuid.Nil {
		return transport.AssignBulkResponse{}, apperr.Validation("assigneeId is required")
	}
	if err := s.ensureUser(ctx, req.AssigneeID); err != nil {
		return transport.AssignBulkResponse{}, err
	}

	ids := uniqueIDs(req.IDs)
	updated, err := s.repo.AssignMany(ctx, ids, req.AssigneeID)
	if err != nil {
		return transport.AssignBulkResponse{}, err
	}

	s.log.WithContext(ctx).Info("raw leads assigned",
		"assigneeId", req.AssigneeID.String(),
		"requested", len(ids),
		"updated", updated,
	)
	s.publish(ctx, events.RawLeadsAssigned{
		BaseEvent:  events.NewBaseEvent(),
		AssigneeID: req.AssigneeID,
		Requested:  len(ids),
		Updated:    updated,
	})
	return transport.AssignBulkResponse{UpdatedCount: updated}, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
