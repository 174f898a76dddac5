package policy

import (
	"context"
	"time"

	"github.com/projecthub-dev/projecthub/internal/domain/project"
)

type DashboardStats struct {
	ActiveProjects int `json:"activeProjects"`
	TeamMembers    int `json:"teamMembers"`
	DueThisWeek    int `json:"dueThisWeek"`
	TotalDocuments int `json:"totalDocuments"`
}

const dueWindow = 7 * 24 * time.Hour

// Stats derives the dashboard counts over the actor's visible project set.
// Recomputed on every call; project counts are small enough that caching
// here would only buy staleness.
func (e *Engine) Stats(ctx context.Context, actorID string, now time.Time) (DashboardStats, error) {
	visible, err := e.VisibleProjects(ctx, actorID)
	if err != nil {
		return DashboardStats{}, err
	}

	var stats DashboardStats

	windowEnd := now.Add(dueWindow)
	ids := make([]string, 0, len(visible))
	distinct := make(map[string]struct{})

	for _, p := range visible {
		ids = append(ids, p.ID)

		if p.Status == project.StatusActive {
			stats.ActiveProjects++

			// [now, now+7d] inclusive on both ends
			if p.Deadline != nil && !p.Deadline.Before(now) && !p.Deadline.After(windowEnd) {
				stats.DueThisWeek++
			}
		}

		members, err := e.memberships.ListByProject(ctx, p.ID)
		if err != nil {
			return DashboardStats{}, storageFault(err)
		}
		for _, m := range members {
			distinct[m.UserID] = struct{}{}
		}
	}

	stats.TeamMembers = len(distinct)

	if len(ids) > 0 {
		total, err := e.documents.CountByProjects(ctx, ids)
		if err != nil {
			return DashboardStats{}, storageFault(err)
		}
		stats.TotalDocuments = total
	}

	return stats, nil
}
