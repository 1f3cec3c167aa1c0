package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecall_backend/internal/events"
	"telecall_backend/internal/rawleads/domain"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/apperr"
	"telecall_backend/platform/logger"
)

func notInterested() transport.UpdateRawLeadRequest {
	return transport.UpdateRawLeadRequest{Status: ptr(domain.StatusNotInterested)}
}

func TestUpdateToNotInterestedConvertsOnce(t *testing.T) {
	f := newFixture(t)
	agent := f.users.add("asha")
	raw := f.create(t, "+910001", &agent)

	first, err := f.svc.Update(context.Background(), raw.ID, notInterested(), &agent, Scope{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotInterested, first.Status)
	assert.Nil(t, first.AssigneeID)
	require.NotNil(t, first.ConvertedLeadID)

	leads := f.repo.ColdLeads()
	require.Len(t, leads, 1)
	assert.Equal(t, "+910001", leads[0].Mobile)
	assert.Equal(t, "910001@rawleads.invalid", leads[0].Email)
	assert.Equal(t, "Unknown", leads[0].FirstName)
	assert.Equal(t, "Caller", leads[0].LastName)
	assert.Equal(t, "cold", leads[0].Temperature)
	assert.Equal(t, "other", leads[0].Source)
	assert.Equal(t, agent, leads[0].CreatedByID)

	second, err := f.svc.Update(context.Background(), raw.ID, notInterested(), &agent, Scope{})
	require.NoError(t, err)
	assert.Equal(t, *first.ConvertedLeadID, *second.ConvertedLeadID)
	assert.Len(t, f.repo.ColdLeads(), 1)
}

func TestConversionClearsAssigneeRegardlessOfPriorOwner(t *testing.T) {
	f := newFixture(t)
	agent := f.users.add("asha")
	raw := f.create(t, "+910001", &agent)

	_, err := f.svc.Update(context.Background(), raw.ID, transport.UpdateRawLeadRequest{Status: ptr(domain.StatusCallLater)}, &agent, Scope{})
	require.NoError(t, err)

	got, err := f.svc.Update(context.Background(), raw.ID, notInterested(), nil, Scope{})
	require.NoError(t, err)
	assert.Nil(t, got.AssigneeID)
	assert.NotNil(t, got.ConvertedLeadID)
}

func TestConcurrentConversionCreatesOneLead(t *testing.T) {
	f := newFixture(t)
	actor := f.users.add("manager")
	raw := f.create(t, "+910001", nil)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Update(context.Background(), raw.ID, notInterested(), &actor, Scope{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, f.repo.ColdLeads(), 1)
}

func TestLostConversionRaceFallsBackToPlainUpdate(t *testing.T) {
	f := newFixture(t)
	actor := f.users.add("manager")
	raw := f.create(t, "+910001", nil)

	first, err := f.svc.Update(context.Background(), raw.ID, notInterested(), &actor, Scope{})
	require.NoError(t, err)

	var contended int
	var mu sync.Mutex
	f.bus.Subscribe(events.RawLeadConversionContended{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		mu.Lock()
		contended++
		mu.Unlock()
		return nil
	}))

	stale := New(staleReadRepo{MemoryRepo: f.repo}, f.users, f.bus, defaultTestConfig, logger.Discard())
	req := notInterested()
	req.Notes = ptr("second caller")
	got, err := stale.Update(context.Background(), raw.ID, req, &actor, Scope{})
	require.NoError(t, err)
	f.bus.Wait()

	assert.Len(t, f.repo.ColdLeads(), 1)
	assert.Equal(t, *first.ConvertedLeadID, *got.ConvertedLeadID)
	assert.Equal(t, "second caller", *got.Notes)
	assert.Equal(t, 1, contended)
}

func TestConversionDescriptionPrecedence(t *testing.T) {
	cases := []struct {
		name     string
		prior    *string
		incoming *string
		want     string
	}{
		{name: "incoming note wins", prior: ptr("old"), incoming: ptr("new"), want: "new"},
		{name: "prior note next", prior: ptr("old"), want: "old"},
		{name: "default last", want: defaultConversionNote},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			actor := f.users.add("manager")
			raw, err := f.svc.Create(context.Background(), transport.CreateRawLeadRequest{Phone: "+910001", Notes: tc.prior})
			require.NoError(t, err)

			req := notInterested()
			req.Notes = tc.incoming
			_, err = f.svc.Update(context.Background(), raw.ID, req, &actor, Scope{})
			require.NoError(t, err)

			leads := f.repo.ColdLeads()
			require.Len(t, leads, 1)
			assert.Equal(t, tc.want, leads[0].Description)
		})
	}
}

func TestCreatorResolutionChain(t *testing.T) {
	t.Run("actor first", func(t *testing.T) {
		f := newFixture(t)
		agent := f.users.add("asha")
		actor := f.users.add("manager")
		raw := f.create(t, "+910001", &agent)

		_, err := f.svc.Update(context.Background(), raw.ID, notInterested(), &actor, Scope{})
		require.NoError(t, err)
		assert.Equal(t, actor, f.repo.ColdLeads()[0].CreatedByID)
	})

	t.Run("assignee when no actor", func(t *testing.T) {
		f := newFixture(t)
		agent := f.users.add("asha")
		raw := f.create(t, "+910001", &agent)

		_, err := f.svc.Update(context.Background(), raw.ID, notInterested(), nil, Scope{})
		require.NoError(t, err)
		assert.Equal(t, agent, f.repo.ColdLeads()[0].CreatedByID)
	})

	t.Run("admin when nobody else", func(t *testing.T) {
		f := newFixture(t)
		admin := f.users.add("root")
		f.users.adminID = &admin
		raw := f.create(t, "+910001", nil)

		nilActor := uuid.Nil
		_, err := f.svc.Update(context.Background(), raw.ID, notInterested(), &nilActor, Scope{})
		require.NoError(t, err)
		assert.Equal(t, admin, f.repo.ColdLeads()[0].CreatedByID)
	})

	t.Run("fails without any owner", func(t *testing.T) {
		f := newFixture(t)
		raw := f.create(t, "+910001", nil)

		_, err := f.svc.Update(context.Background(), raw.ID, notInterested(), nil, Scope{})
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindInternal))
		assert.Empty(t, f.repo.ColdLeads())

		got, err := f.svc.GetByID(context.Background(), raw.ID, Scope{})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusUntouched, got.Status)
		assert.Nil(t, got.ConvertedLeadID)
	})
}

func TestPlainUpdatesAllowAnyTransition(t *testing.T) {
	f := newFixture(t)
	raw := f.create(t, "+910001", nil)

	for _, s := range []domain.Status{domain.StatusInterested, domain.StatusUntouched, domain.StatusDND, domain.StatusCallLater} {
		got, err := f.svc.Update(context.Background(), raw.ID, transport.UpdateRawLeadRequest{Status: ptr(s)}, nil, Scope{})
		require.NoError(t, err)
		assert.Equal(t, s, got.Status)
	}
	assert.Empty(t, f.repo.ColdLeads())
}

func TestUpdateMissingRecordIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), uuid.New(), notInterested(), nil, Scope{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestUpdateOutsideScopeIsForbidden(t *testing.T) {
	f := newFixture(t)
	owner := f.users.add("asha")
	other := f.users.add("ravi")
	raw := f.create(t, "+910001", &owner)

	_, err := f.svc.Update(context.Background(), raw.ID, notInterested(), &other, OwnedBy(other))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Empty(t, f.repo.ColdLeads())

	_, err = f.svc.Update(context.Background(), raw.ID, notInterested(), &owner, OwnedBy(owner))
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	raw := f.create(t, "+910001", nil)

	removed, err := f.svc.Remove(context.Background(), raw.ID)
	require.NoError(t, err)
	assert.Equal(t, raw.ID, removed.ID)

	_, err = f.svc.Remove(context.Background(), raw.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// the phone is free again
	f.create(t, "+910001", nil)
}

func TestRemoveBulkIgnoresMissingIDs(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "+910001", nil)
	b := f.create(t, "+910002", nil)

	resp, err := f.svc.RemoveBulk(context.Background(), transport.RemoveBulkRequest{IDs: []uuid.UUID{a.ID, b.ID, uuid.New(), a.ID}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.DeletedCount)

	_, err = f.svc.RemoveBulk(context.Background(), transport.RemoveBulkRequest{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestGetByIDIncludesAssigneeSummary(t *testing.T) {
	f := newFixture(t)
	agent := f.users.add("asha")
	raw := f.create(t, "+910001", &agent)

	got, err := f.svc.GetByID(context.Background(), raw.ID, OwnedBy(agent))
	require.NoError(t, err)
	require.NotNil(t, got.Assignee)
	assert.Equal(t, "asha", got.Assignee.Name)
	assert.Equal(t, "asha@example.com", got.Assignee.Email)

	_, err = f.svc.GetByID(context.Background(), raw.ID, OwnedBy(uuid.New()))
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestConversionOfDeletedRecordIsNotFound(t *testing.T) {
	f := newFixture(t)
	actor := f.users.add("manager")
	raw := f.create(t, "+910001", nil)

	lead, err := f.repo.GetByID(context.Background(), raw.ID)
	require.NoError(t, err)
	_, err = f.repo.Delete(context.Background(), raw.ID)
	require.NoError(t, err)

	var contended int
	var mu sync.Mutex
	f.bus.Subscribe(events.RawLeadConversionContended{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		mu.Lock()
		contended++
		mu.Unlock()
		return nil
	}))

	svc := New(vanishedRepo{MemoryRepo: f.repo, lead: lead}, f.users, f.bus, defaultTestConfig, logger.Discard())
	_, err = svc.Update(context.Background(), raw.ID, notInterested(), &actor, Scope{})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	f.bus.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, contended)
	assert.Empty(t, f.repo.ColdLeads())
}
