package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"telecall_backend/internal/rawleads/repository"
	"telecall_backend/internal/rawleads/transport"
)

const unknownAssigneeName = "Unknown"

// StatsQuery bounds the stats report by creation time, both ends inclusive.
type StatsQuery struct {
	From *time.Time
	To   *time.Time
}

// GetStats reports pipeline totals and a per-assignee leaderboard sorted by
// assigned count, ties in order of each assignee's earliest record.
func (s *Service) GetStats(ctx context.Context, q StatsQuery, scope Scope) (transport.StatsResponse, error) {
	filter := repository.StatsFilter{From: q.From, To: q.To, AssigneeID: scope.AssigneeID}

	var outcomes []repository.OutcomeCount
	var perAssignee []repository.AssigneeOutcomeCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		outcomes, err = s.repo.CountOutcomes(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		perAssignee, err = s.repo.CountAssigneeOutcomes(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.StatsResponse{}, err
	}

	rows := groupByAssignee(perAssignee)
	if err := s.attachNames(ctx, rows); err != nil {
		return transport.StatsResponse{}, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Assigned > rows[j].Assigned })

	return transport.StatsResponse{
		Totals:     sumTotals(outcomes),
		ByAssignee: rows,
	}, nil
}

func sumTotals(groups []repository.OutcomeCount) transport.StatsTotals {
	var t transport.StatsTotals
	for _, g := range groups {
		t.Total += g.Count
		if g.Assigned {
			t.Assigned += g.Count
		}
		if g.Converted {
			t.Converted += g.Count
		}
		switch {
		case g.Status.IsCompleted():
			t.Completed += g.Count
		case g.Status.IsPending():
			t.Pending += g.Count
		}
	}
	t.Unassigned = t.Total - t.Assigned
	return t
}

// groupByAssignee folds the grouped counts into one row per assignee, in the
// order the assignees are first encountered.
func groupByAssignee(groups []repository.AssigneeOutcomeCount) []transport.AssigneeStats {
	index := make(map[uuid.UUID]int)
	rows := make([]transport.AssigneeStats, 0)
	for _, g := range groups {
		i, ok := index[g.AssigneeID]
		if !ok {
			i = len(rows)
			index[g.AssigneeID] = i
			rows = append(rows, transport.AssigneeStats{AssigneeID: g.AssigneeID})
		}
		row := &rows[i]
		row.Assigned += g.Count
		if g.Converted {
			row.Converted += g.Count
		}
		switch {
		case g.Status.IsCompleted():
			row.Completed += g.Count
		case g.Status.IsPending():
			row.Pending += g.Count
		}
	}
	return rows
}

func (s *Service) attachNames(ctx context.Context, rows []transport.AssigneeStats) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(rows))
	for i, r := range rows {
		ids[i] = r.AssigneeID
	}

	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].Name = unknownAssigneeName
		if u, ok := users[rows[i].AssigneeID]; ok && u.Name != "" {
			rows[i].Name = u.Name
		}
	}
	return nil
}
