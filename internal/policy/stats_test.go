package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projecthub-dev/projecthub/internal/domain/document"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
)

func TestStats_Dashboard(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	mkProject := func(status project.Status, deadline *time.Time) project.Project {
		p, err := f.store.CreateProject(ctx, project.CreateProjectRequest{
			Name:     "Project " + uuid.NewString()[:8],
			Status:   string(status),
			Deadline: deadline,
		}, f.admin.ID)
		if err != nil {
			t.Fatalf("seed project: %v", err)
		}
		return p
	}

	soon := now.Add(3 * 24 * time.Hour)
	edge := now.Add(7 * 24 * time.Hour) // inclusive upper bound
	late := now.Add(8 * 24 * time.Hour)
	past := now.Add(-time.Hour)

	pActive := mkProject(project.StatusActive, &soon)
	pEdge := mkProject(project.StatusActive, &edge)
	pLate := mkProject(project.StatusActive, &late)
	mkProject(project.StatusCompleted, &soon) // completed never counts as due
	pHold := mkProject(project.StatusOnHold, nil)

	if err := f.store.SetLead(ctx, pActive.ID, &f.lead.ID); err != nil {
		t.Fatalf("set lead: %v", err)
	}

	// memberships: dev on two projects, dev2 on one, lead2 on one
	assign := func(pid, uid string) {
		t.Helper()
		if _, err := f.engine.AssignLead(ctx, f.admin.ID, pid, f.lead.ID); err != nil {
			t.Fatalf("assign lead for %s: %v", pid, err)
		}
		if _, err := f.engine.Assign(ctx, f.lead.ID, pid, uid); err != nil {
			t.Fatalf("assign %s -> %s: %v", uid, pid, err)
		}
	}

	assign(pActive.ID, f.dev.ID)
	assign(pEdge.ID, f.dev.ID)
	assign(pEdge.ID, f.dev2.ID)
	if _, err := f.engine.Assign(ctx, f.admin.ID, pLate.ID, f.lead2.ID); err != nil {
		t.Fatalf("assign lead2: %v", err)
	}

	// documents on two visible projects
	for i, pid := range []string{pActive.ID, pActive.ID, pHold.ID} {
		err := f.store.CreateDocument(ctx, document.Document{
			ID: uuid.NewString(), ProjectID: pid, Name: "doc", SizeBytes: int64(100 + i),
			MimeType: "application/pdf", UploadedBy: f.lead.ID, CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("seed document: %v", err)
		}
	}

	// admin scope: everything
	stats, err := f.engine.Stats(ctx, f.admin.ID, now)
	if err != nil {
		t.Fatalf("admin stats: %v", err)
	}
	if stats.ActiveProjects != 3 {
		t.Fatalf("activeProjects = %d, want 3", stats.ActiveProjects)
	}
	if stats.DueThisWeek != 2 {
		t.Fatalf("dueThisWeek = %d, want 2 (inclusive 7d edge, not 8d)", stats.DueThisWeek)
	}
	if stats.TeamMembers != 3 {
		t.Fatalf("teamMembers = %d, want 3 distinct", stats.TeamMembers)
	}
	if stats.TotalDocuments != 3 {
		t.Fatalf("totalDocuments = %d, want 3", stats.TotalDocuments)
	}

	// developer scope: degenerate to their own membership set
	stats, err = f.engine.Stats(ctx, f.dev2.ID, now)
	if err != nil {
		t.Fatalf("dev2 stats: %v", err)
	}
	if stats.ActiveProjects != 1 {
		t.Fatalf("dev2 activeProjects = %d, want 1", stats.ActiveProjects)
	}
	if stats.TeamMembers != 2 {
		t.Fatalf("dev2 teamMembers = %d, want 2 (dev and dev2 on pEdge)", stats.TeamMembers)
	}
	if stats.TotalDocuments != 0 {
		t.Fatalf("dev2 totalDocuments = %d, want 0", stats.TotalDocuments)
	}

	// a past deadline on an active project is not "due this week"
	pPast := mkProject(project.StatusActive, &past)
	_ = pPast
	stats, err = f.engine.Stats(ctx, f.admin.ID, now)
	if err != nil {
		t.Fatalf("stats after past-deadline project: %v", err)
	}
	if stats.DueThisWeek != 2 {
		t.Fatalf("dueThisWeek = %d, want 2 (past deadlines excluded)", stats.DueThisWeek)
	}
}
