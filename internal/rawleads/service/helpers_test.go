package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"telecall_backend/internal/events"
	"telecall_backend/internal/rawleads/ports"
	"telecall_backend/internal/rawleads/repository"
	"telecall_backend/internal/rawleads/transport"
	"telecall_backend/platform/logger"
)

type testConfig struct {
	region    string
	chunkSize int
	maxItems  int
}

func (c testConfig) GetPhoneDefaultRegion() string { return c.region }
func (c testConfig) GetIngestChunkSize() int       { return c.chunkSize }
func (c testConfig) GetMaxBulkItems() int          { return c.maxItems }

var defaultTestConfig = testConfig{region: "IN", chunkSize: 500, maxItems: 10000}

type fakeDirectory struct {
	mu        sync.Mutex
	users     map[uuid.UUID]ports.UserSummary
	adminID   *uuid.UUID
	lookups   atomic.Int32
	lookupErr error
}

func newFakeDirectory(users ...ports.UserSummary) *fakeDirectory {
	d := &fakeDirectory{users: make(map[uuid.UUID]ports.UserSummary)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) add(name string) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := uuid.New()
	d.users[id] = ports.UserSummary{ID: id, Name: name, Email: name + "@example.com"}
	return id
}

func (d *fakeDirectory) UserExists(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[id]
	return ok, nil
}

func (d *fakeDirectory) GetUsersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ports.UserSummary, error) {
	d.lookups.Add(1)
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uuid.UUID]ports.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (d *fakeDirectory) FindAdminID(context.Context) (*uuid.UUID, error) {
	return d.adminID, nil
}

type fixture struct {
	svc   *Service
	repo  *repository.MemoryRepo
	users *fakeDirectory
	bus   *events.InMemoryBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, defaultTestConfig)
}

func newFixtureWithConfig(t *testing.T, cfg testConfig) *fixture {
	t.Helper()
	repo := repository.NewMemory()
	users := newFakeDirectory()
	bus := events.NewInMemoryBus(logger.Discard())
	return &fixture{
		svc:   New(repo, users, bus, cfg, logger.Discard()),
		repo:  repo,
		users: users,
		bus:   bus,
	}
}

func (f *fixture) create(t *testing.T, phone string, assignee *uuid.UUID) transport.RawLeadResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), transport.CreateRawLeadRequest{Phone: phone, AssigneeID: assignee})
	require.NoError(t, err)
	return resp
}

func items(phones ...string) []transport.BulkIngestItem {
	out := make([]transport.BulkIngestItem, len(phones))
	for i, p := range phones {
		out[i] = transport.BulkIngestItem{Phone: p}
	}
	return out
}

func ptr[T any](v T) *T { return &v }

// countingRepo records how the service drives the store.
type countingRepo struct {
	*repository.MemoryRepo
	insertCalls atomic.Int32
}

func (r *countingRepo) InsertMany(ctx context.Context, p repository.BulkInsertParams) (int, error) {
	r.insertCalls.Add(1)
	return r.MemoryRepo.InsertMany(ctx, p)
}

// stalePrecheckRepo hides existing phones from the pre-insert lookup, the way
// a concurrent feed that commits in between would.
type stalePrecheckRepo struct {
	*repository.MemoryRepo
}

func (stalePrecheckRepo) ExistingPhones(context.Context, []string) ([]string, error) {
	return nil, nil
}

// vanishedRepo serves a record from GetByID that is no longer stored, the
// way a read racing a concurrent delete would.
type vanishedRepo struct {
	*repository.MemoryRepo
	lead repository.RawLead
}

func (r vanishedRepo) GetByID(context.Context, uuid.UUID) (repository.RawLead, error) {
	return r.lead, nil
}

// staleReadRepo always reports the record as unconverted, the way a request
// that read it just before a concurrent conversion would.
type staleReadRepo struct {
	*repository.MemoryRepo
}

func (r staleReadRepo) GetByID(ctx context.Context, id uuid.UUID) (repository.RawLead, error) {
	lead, err := r.MemoryRepo.GetByID(ctx, id)
	lead.ConvertedLeadID = nil
	return lead, err
}
