package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"telecall_backend/platform/apperr"
)

// MemoryRepo is an in-process Repository with the same uniqueness and
// conversion guarantees as Repo. It backs service and handler tests and
// local tooling that runs without a database.
type MemoryRepo struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]RawLead
	byPhone map[string]uuid.UUID
	created []ColdLead
	clock   func() time.Time
}

var _ Repository = (*MemoryRepo)(nil)

// NewMemory creates an empty MemoryRepo.
func NewMemory() *MemoryRepo {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return &MemoryRepo{
		leads:   make(map[uuid.UUID]RawLead),
		byPhone: make(map[string]uuid.UUID),
		// strictly increasing so ordering by created_at is deterministic
		clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Millisecond)
		},
	}
}

// SetClock replaces the timestamp source.
func (m *MemoryRepo) SetClock(clock func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = clock
}

// ColdLeads returns the CRM leads created by conversions.
func (m *MemoryRepo) ColdLeads() []ColdLead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ColdLead(nil), m.created...)
}

func (m *MemoryRepo) insertLocked(p CreateParams) RawLead {
	now := m.clock()
	lead := RawLead{
		ID:         uuid.New(),
		Phone:      p.Phone,
		BatchName:  p.BatchName,
		Source:     p.Source,
		Notes:      p.Notes,
		Status:     p.Status,
		AssigneeID: p.AssigneeID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.leads[lead.ID] = lead
	m.byPhone[lead.Phone] = lead.ID
	return lead
}

func (m *MemoryRepo) Create(_ context.Context, params CreateParams) (RawLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byPhone[params.Phone]; exists {
		return RawLead{}, apperr.Conflict("phone already exists").
			WithDetails(map[string]string{"phone": params.Phone}).
			WithOp(opCreate)
	}
	return m.insertLocked(params), nil
}

func (m *MemoryRepo) InsertMany(_ context.Context, params BulkInsertParams) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, item := range params.Items {
		if _, exists := m.byPhone[item.Phone]; exists {
			continue
		}
		m.insertLocked(CreateParams{
			Phone:      item.Phone,
			Notes:      item.Notes,
			BatchName:  params.BatchName,
			Source:     params.Source,
			Status:     params.Status,
			AssigneeID: params.AssigneeID,
		})
		inserted++
	}
	return inserted, nil
}

func (m *MemoryRepo) ExistingPhones(_ context.Context, phones []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, p := range phones {
		if _, ok := m.byPhone[p]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (RawLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[id]
	if !ok {
		return RawLead{}, apperr.NotFound(rawLeadNotFound).WithOp(opGetByID)
	}
	return lead, nil
}

func (m *MemoryRepo) sortedLocked() []RawLead {
	all := make([]RawLead, 0, len(m.leads))
	for _, l := range m.leads {
		all = append(all, l)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID.String() < all[j].ID.String()
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

func (m *MemoryRepo) List(_ context.Context, params ListParams) ([]RawLead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.sortedLocked()
	var matched []RawLead
	for i := len(all) - 1; i >= 0; i-- {
		l := all[i]
		if params.Status != nil && l.Status != *params.Status {
			continue
		}
		if params.AssigneeID != nil && (l.AssigneeID == nil || *l.AssigneeID != *params.AssigneeID) {
			continue
		}
		if params.Unassigned && l.AssigneeID != nil {
			continue
		}
		if params.BatchName != nil && (l.BatchName == nil || *l.BatchName != *params.BatchName) {
			continue
		}
		if params.Search != "" && !strings.Contains(strings.ToLower(l.Phone), strings.ToLower(params.Search)) {
			continue
		}
		matched = append(matched, l)
	}

	total := len(matched)
	start := min(params.Offset, total)
	end := total
	if params.Limit > 0 {
		end = min(start+params.Limit, total)
	}
	return matched[start:end], total, nil
}

func (m *MemoryRepo) ListBatches(_ context.Context) ([]BatchSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := map[string]int{}
	var out []BatchSummary
	for _, l := range m.sortedLocked() {
		key := "\x00"
		if l.BatchName != nil {
			key = *l.BatchName
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, BatchSummary{BatchName: l.BatchName})
		}
		b := &out[i]
		b.Total++
		if l.Status.IsPending() {
			b.Pending++
		}
		if l.IsConverted() {
			b.Converted++
		}
		if l.CreatedAt.After(b.LastAddedAt) {
			b.LastAddedAt = l.CreatedAt
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastAddedAt.After(out[j].LastAddedAt) })
	return out, nil
}

func (m *MemoryRepo) AssignMany(_ context.Context, ids []uuid.UUID, assigneeID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	updated := 0
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		l, ok := m.leads[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		a := assigneeID
		l.AssigneeID = &a
		l.UpdatedAt = m.clock()
		m.leads[id] = l
		updated++
	}
	return updated, nil
}

func applyUpdate(l RawLead, p UpdateParams) RawLead {
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.Notes != nil {
		l.Notes = p.Notes
	}
	if p.BatchName != nil {
		l.BatchName = p.BatchName
	}
	if p.Source != nil {
		l.Source = p.Source
	}
	return l
}

func (m *MemoryRepo) Update(_ context.Context, id uuid.UUID, params UpdateParams) (RawLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok {
		return RawLead{}, apperr.NotFound(rawLeadNotFound).WithOp(opUpdate)
	}
	l = applyUpdate(l, params)
	l.UpdatedAt = m.clock()
	m.leads[id] = l
	return l, nil
}

func (m *MemoryRepo) ConvertAndUpdate(_ context.Context, id uuid.UUID, params UpdateParams, lead ColdLead) (RawLead, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok {
		return RawLead{}, false, apperr.NotFound(rawLeadNotFound).WithOp(opConvert)
	}
	if l.IsConverted() {
		return RawLead{}, false, nil
	}

	leadID := uuid.New()
	m.created = append(m.created, lead)

	l = applyUpdate(l, params)
	l.AssigneeID = nil
	l.ConvertedLeadID = &leadID
	l.UpdatedAt = m.clock()
	m.leads[id] = l
	return l, true, nil
}

func (m *MemoryRepo) Delete(_ context.Context, id uuid.UUID) (RawLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok {
		return RawLead{}, apperr.NotFound(rawLeadNotFound).WithOp(opDelete)
	}
	delete(m.leads, id)
	delete(m.byPhone, l.Phone)
	return l, nil
}

func (m *MemoryRepo) DeleteMany(_ context.Context, ids []uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		l, ok := m.leads[id]
		if !ok {
			continue
		}
		delete(m.leads, id)
		delete(m.byPhone, l.Phone)
		deleted++
	}
	return deleted, nil
}

func (m *MemoryRepo) matchesStats(l RawLead, f StatsFilter) bool {
	if f.From != nil && l.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && l.CreatedAt.After(*f.To) {
		return false
	}
	if f.AssigneeID != nil && (l.AssigneeID == nil || *l.AssigneeID != *f.AssigneeID) {
		return false
	}
	return true
}

func (m *MemoryRepo) CountOutcomes(_ context.Context, filter StatsFilter) ([]OutcomeCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := map[OutcomeCount]int{}
	var out []OutcomeCount
	for _, l := range m.sortedLocked() {
		if !m.matchesStats(l, filter) {
			continue
		}
		key := OutcomeCount{Status: l.Status, Assigned: l.AssigneeID != nil, Converted: l.IsConverted()}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, key)
		}
		out[i].Count++
	}
	return out, nil
}

func (m *MemoryRepo) CountAssigneeOutcomes(_ context.Context, filter StatsFilter) ([]AssigneeOutcomeCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := map[AssigneeOutcomeCount]int{}
	var out []AssigneeOutcomeCount
	for _, l := range m.sortedLocked() {
		if l.AssigneeID == nil || !m.matchesStats(l, filter) {
			continue
		}
		key := AssigneeOutcomeCount{AssigneeID: *l.AssigneeID, Status: l.Status, Converted: l.IsConverted()}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, key)
		}
		out[i].Count++
	}
	return out, nil
}
