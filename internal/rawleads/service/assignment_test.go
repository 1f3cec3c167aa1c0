package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecall_backend/internal/rawleads/domain"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/apperr"
)

func TestAssignBulkCountsExistingRecords(t *testing.T) {
	f := newFixture(t)
	agent := f.users.add("asha")
	a := f.create(t, "+910001", nil)
	b := f.create(t, "+910002", nil)

	_, err := f.svc.Update(context.Background(), b.ID, transport.UpdateRawLeadRequest{Status: ptr(domain.StatusCallLater)}, nil, Scope{})
	require.NoError(t, err)

	resp, err := f.svc.AssignBulk(context.Background(), transport.AssignBulkRequest{
		IDs:        []uuid.UUID{a.ID, b.ID, uuid.New()},
		AssigneeID: agent,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.UpdatedCount)

	got, err := f.svc.GetByID(context.Background(), b.ID, Scope{})
	require.NoError(t, err)
	assert.Equal(t, agent, *got.AssigneeID)
	assert.Equal(t, domain.StatusCallLater, got.Status)
	assert.Nil(t, got.ConvertedLeadID)
}

func TestAssignBulkOverwritesOwner(t *testing.T) {
	f := newFixture(t)
	first := f.users.add("asha")
	second := f.users.add("ravi")
	raw := f.create(t, "+910001", &first)

	_, err := f.svc.AssignBulk(context.Background(), transport.AssignBulkRequest{IDs: []uuid.UUID{raw.ID}, AssigneeID: second})
	require.NoError(t, err)

	got, err := f.svc.GetByID(context.Background(), raw.ID, Scope{})
	require.NoError(t, err)
	assert.Equal(t, second, *got.AssigneeID)
}

func TestAssignBulkValidation(t *testing.T) {
	f := newFixture(t)
	raw := f.create(t, "+910001", nil)

	_, err := f.svc.AssignBulk(context.Background(), transport.AssignBulkRequest{AssigneeID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.AssignBulk(context.Background(), transport.AssignBulkRequest{IDs: []uuid.UUID{raw.ID}, AssigneeID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListScopeOverridesAssigneeFilter(t *testing.T) {
	f := newFixture(t)
	asha := f.users.add("asha")
	ravi := f.users.add("ravi")
	f.create(t, "+910001", &asha)
	f.create(t, "+910002", &asha)
	f.create(t, "+910003", &ravi)
	f.create(t, "+910004", nil)

	got, err := f.svc.List(context.Background(), transport.ListRawLeadsRequest{AssigneeID: ravi.String(), Unassigned: true}, OwnedBy(asha))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Total)
	for _, item := range got.Items {
		assert.Equal(t, asha, *item.AssigneeID)
	}

	unassigned, err := f.svc.List(context.Background(), transport.ListRawLeadsRequest{Unassigned: true}, Scope{})
	require.NoError(t, err)
	assert.Equal(t, 1, unassigned.Total)
}

func TestListPaginationReportsHasMore(t *testing.T) {
	f := newFixture(t)
	for _, p := range []string{"+910001", "+910002", "+910003"} {
		f.create(t, p, nil)
	}

	page1, err := f.svc.List(context.Background(), transport.ListRawLeadsRequest{Page: 1, PageSize: 2}, Scope{})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 2)
	assert.True(t, page1.HasMore)
	assert.Equal(t, "+910003", page1.Items[0].Phone)

	page2, err := f.svc.List(context.Background(), transport.ListRawLeadsRequest{Page: 2, PageSize: 2}, Scope{})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 1)
	assert.False(t, page2.HasMore)
	assert.Equal(t, 3, page2.Total)
}

func TestListBatches(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BulkIngest(context.Background(), transport.BulkIngestRequest{Items: items("+910001", "+910002"), BatchName: ptr("march")})
	require.NoError(t, err)
	_, err = f.svc.BulkIngest(context.Background(), transport.BulkIngestRequest{Items: items("+910003"), BatchName: ptr("april")})
	require.NoError(t, err)

	list, err := f.svc.List(context.Background(), transport.ListRawLeadsRequest{BatchName: "march"}, Scope{})
	require.NoError(t, err)
	_, err = f.svc.Update(context.Background(), list.Items[0].ID, transport.UpdateRawLeadRequest{Status: ptr(domain.StatusDND)}, nil, Scope{})
	require.NoError(t, err)

	batches, err := f.svc.ListBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches.Items, 2)
	assert.Equal(t, "april", *batches.Items[0].BatchName)
	march := batches.Items[1]
	assert.Equal(t, 2, march.Total)
	assert.Equal(t, 1, march.Pending)
	assert.Equal(t, 1, march.Completed)
}
