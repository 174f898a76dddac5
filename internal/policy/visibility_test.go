package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/projecthub-dev/projecthub/internal/policy"
)

func TestVisibleProjects_Asymmetry(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()

	p1 := f.newProject(t, f.admin.ID, &f.lead.ID)
	f.newProject(t, f.admin.ID, nil)
	f.newProject(t, f.lead.ID, nil)

	// admin sees everything
	got, err := f.engine.VisibleProjects(ctx, f.admin.ID)
	if err != nil {
		t.Fatalf("admin visibility: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("admin should see 3 projects, got %d", len(got))
	}

	// a lead with zero memberships and zero leaderships still sees the
	// full list; visibility is wider than mutation rights
	got, err = f.engine.VisibleProjects(ctx, f.lead2.ID)
	if err != nil {
		t.Fatalf("lead visibility: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("lead2 should see 3 projects, got %d", len(got))
	}

	// a developer with no memberships sees nothing
	got, err = f.engine.VisibleProjects(ctx, f.dev.ID)
	if err != nil {
		t.Fatalf("dev visibility: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("dev with no memberships should see 0 projects, got %d", len(got))
	}

	// once assigned, exactly that project shows up
	if _, err := f.engine.Assign(ctx, f.lead.ID, p1.ID, f.dev.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	got, err = f.engine.VisibleProjects(ctx, f.dev.ID)
	if err != nil {
		t.Fatalf("dev visibility after assign: %v", err)
	}
	if len(got) != 1 || got[0].ID != p1.ID {
		t.Fatalf("dev should see only %s, got %+v", p1.ID, got)
	}
}

func TestAuthorizeProjectView(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	if _, err := f.engine.AuthorizeProjectView(ctx, f.lead2.ID, p.ID); err != nil {
		t.Fatalf("unrelated lead should still view: %v", err)
	}

	if _, err := f.engine.AuthorizeProjectView(ctx, f.dev.ID, p.ID); !errors.Is(err, policy.ErrNotRelatedToProject) {
		t.Fatalf("non-member dev view: got %v, want ErrNotRelatedToProject", err)
	}

	if _, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := f.engine.AuthorizeProjectView(ctx, f.dev.ID, p.ID); err != nil {
		t.Fatalf("member dev view: %v", err)
	}
}
