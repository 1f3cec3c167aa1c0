package service

import (
	"context"

	"github.com/google/uuid"

	"telecall_backend/internal/events"
	"telecall_backend/internal/rawleads/repository"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/apperr"
	"telecall_backend/platform/phone"
)

const (
	coldLeadFirstName     = "Unknown"
	coldLeadLastName      = "Caller"
	coldLeadEmailDomain   = "rawleads.invalid"
	coldLeadTemperature   = "cold"
	coldLeadSource        = "other"
	defaultConversionNote = "Converted from raw lead marked not interested"
)

// Update applies a call outcome. Moving an unconverted record to
// NOT_INTERESTED also creates its cold CRM lead, at most once per record.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateRawLeadRequest, actorID *uuid.UUID, scope Scope) (transport.RawLeadResponse, error) {
	if req.Status != nil && !req.Status.IsKnown() {
		return transport.RawLeadResponse{}, apperr.Validation("unknown status").WithDetails(map[string]string{"status": string(*req.Status)})
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.RawLeadResponse{}, err
	}
	if err := scope.check(current); err != nil {
		return transport.RawLeadResponse{}, err
	}

	params := repository.UpdateParams{
		Status:    req.Status,
		Notes:     req.Notes,
		BatchName: req.BatchName,
		Source:    req.Source,
	}

	var updated repository.RawLead
	if req.Status != nil && req.Status.TriggersConversion() && !current.IsConverted() {
		updated, err = s.convert(ctx, current, params, actorID)
	} else {
		updated, err = s.repo.Update(ctx, id, params)
	}
	if err != nil {
		return transport.RawLeadResponse{}, err
	}
	return toResponse(updated), nil
}

func (s *Service) convert(ctx context.Context, current repository.RawLead, params repository.UpdateParams, actorID *uuid.UUID) (repository.RawLead, error) {
	creatorID, err := s.resolveCreator(ctx, actorID, current)
	if err != nil {
		return repository.RawLead{}, err
	}

	log := s.log.WithContext(ctx)
	updated, claimed, err := s.repo.ConvertAndUpdate(ctx, current.ID, params, buildColdLead(current, params.Notes, creatorID))
	if err != nil {
		return repository.RawLead{}, err
	}
	if !claimed {
		// Another request converted it first; keep the field changes only.
		log.ConversionRaceLost(current.ID.String())
		s.publish(ctx, events.RawLeadConversionContended{
			BaseEvent: events.NewBaseEvent(),
			RawLeadID: current.ID,
		})
		return s.repo.Update(ctx, current.ID, params)
	}

	log.ConversionClaimed(updated.ID.String(), updated.ConvertedLeadID.String(), creatorID.String())
	s.publish(ctx, events.RawLeadConverted{
		BaseEvent:   events.NewBaseEvent(),
		RawLeadID:   updated.ID,
		LeadID:      *updated.ConvertedLeadID,
		CreatedByID: creatorID,
		Phone:       updated.Phone,
	})
	return updated, nil
}

func buildColdLead(raw repository.RawLead, incomingNote *string, creatorID uuid.UUID) repository.ColdLead {
	description := defaultConversionNote
	switch {
	case incomingNote != nil && *incomingNote != "":
		description = *incomingNote
	case raw.Notes != nil && *raw.Notes != "":
		description = *raw.Notes
	}

	local := phone.Digits(raw.Phone)
	if local == "" {
		local = raw.ID.String()
	}

	return repository.ColdLead{
		FirstName:   coldLeadFirstName,
		LastName:    coldLeadLastName,
		Email:       local + "@" + coldLeadEmailDomain,
		Mobile:      raw.Phone,
		Temperature: coldLeadTemperature,
		Source:      coldLeadSource,
		Description: description,
		CreatedByID: creatorID,
	}
}

// creatorResolver proposes an owner for a converted lead. A nil id with a
// nil error passes to the next resolver.
type creatorResolver func(ctx context.Context, actorID *uuid.UUID, raw repository.RawLead) (*uuid.UUID, error)

func (s *Service) creatorResolvers() []creatorResolver {
	return []creatorResolver{
		func(_ context.Context, actorID *uuid.UUID, _ repository.RawLead) (*uuid.UUID, error) {
			return actorID, nil
		},
		func(_ context.Context, _ *uuid.UUID, raw repository.RawLead) (*uuid.UUID, error) {
			return raw.AssigneeID, nil
		},
		func(ctx context.Context, _ *uuid.UUID, _ repository.RawLead) (*uuid.UUID, error) {
			return s.users.FindAdminID(ctx)
		},
	}
}

func (s *Service) resolveCreator(ctx context.Context, actorID *uuid.UUID, raw repository.RawLead) (uuid.UUID, error) {
	for _, resolve := range s.creatorResolvers() {
		id, err := resolve(ctx, actorID, raw)
		if err != nil {
			return uuid.Nil, err
		}
		if id != nil && *id != uuid.Nil {
			return *id, nil
		}
	}
	return uuid.Nil, apperr.Internal("no user available to own the converted lead").
		WithOp("rawleads.service.resolveCreator").
		WithDetails(map[string]string{"rawLeadId": raw.ID.String()})
}

// Remove deletes one raw lead and returns it.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (transport.RawLeadResponse, error) {
	lead, err := s.repo.Delete(ctx, id)
	if err != nil {
		return transport.RawLeadResponse{}, err
	}
	s.publish(ctx, events.RawLeadsRemoved{
		BaseEvent: events.NewBaseEvent(),
		IDs:       []uuid.UUID{id},
		Deleted:   1,
	})
	return toResponse(lead), nil
}

// RemoveBulk deletes every listed raw lead that exists.
func (s *Service) RemoveBulk(ctx context.Context, req transport.RemoveBulkRequest) (transport.RemoveBulkResponse, error) {
	if len(req.IDs) == 0 {
		return transport.RemoveBulkResponse{}, apperr.Validation("ids must not be empty")
	}

	ids := uniqueIDs(req.IDs)
	deleted, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		return transport.RemoveBulkResponse{}, err
	}

	s.publish(ctx, events.RawLeadsRemoved{
		BaseEvent: events.NewBaseEvent(),
		IDs:       ids,
		Deleted:   deleted,
	})
	return transport.RemoveBulkResponse{DeletedCount: deleted}, nil
}
