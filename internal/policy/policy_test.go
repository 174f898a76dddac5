package policy_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/role"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
	"github.com/projecthub-dev/projecthub/internal/policy"
	"github.com/projecthub-dev/projecthub/internal/repo/memory"
)

// fixture wires the engine against the in-memory backend and seeds the cast
// of users most tests need.
type fixture struct {
	store  *memory.Store
	engine *policy.Engine

	admin user.User
	lead  user.User
	lead2 user.User
	dev   user.User
	dev2  user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	engine := policy.NewEngine(store, projectStore{store}, store, store)

	ctx := context.Background()

	mk := func(email, name string, r role.Role) user.User {
		u, err := store.CreateUser(ctx, email, "x", name, r)
		if err != nil {
			t.Fatalf("seed user %s: %v", email, err)
		}
		return u
	}

	return &fixture{
		store:  store,
		engine: engine,
		admin:  mk("admin@example.com", "Admin", role.Admin),
		lead:   mk("lead1@example.com", "Lead One", role.ProjectLead),
		lead2:  mk("lead2@example.com", "Lead Two", role.ProjectLead),
		dev:    mk("dev1@example.com", "Dev One", role.Developer),
		dev2:   mk("dev2@example.com", "Dev Two", role.Developer),
	}
}

// projectStore adapts the memory store's project methods to the engine's
// ProjectStore interface (GetByID vs GetProject naming).
type projectStore struct{ *memory.Store }

func (p projectStore) GetByID(ctx context.Context, id string) (project.Project, error) {
	return p.GetProject(ctx, id)
}

func (f *fixture) newProject(t *testing.T, createdBy string, leadID *string) project.Project {
	t.Helper()

	p, err := f.store.CreateProject(context.Background(), project.CreateProjectRequest{
		Name: "Billing Revamp",
	}, createdBy)
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if leadID != nil {
		if err := f.store.SetLead(context.Background(), p.ID, leadID); err != nil {
			t.Fatalf("seed lead: %v", err)
		}
		p.ProjectLeadID = leadID
	}
	return p
}

func TestAssign_Policy(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(f *fixture) user.User
		target  func(f *fixture) user.User
		setup   func(f *fixture, p project.Project)
		lead    func(f *fixture) *string
		wantErr error
	}{
		{
			name:   "admin_attaches_project_lead",
			actor:  func(f *fixture) user.User { return f.admin },
			target: func(f *fixture) user.User { return f.lead2 },
		},
		{
			name:    "admin_cannot_attach_developer",
			actor:   func(f *fixture) user.User { return f.admin },
			target:  func(f *fixture) user.User { return f.dev },
			wantErr: policy.ErrInvalidTargetRole,
		},
		{
			name:    "admin_cannot_attach_admin",
			actor:   func(f *fixture) user.User { return f.admin },
			target:  func(f *fixture) user.User { return f.admin },
			wantErr: policy.ErrInvalidTargetRole,
		},
		{
			name:   "lead_attaches_developer_to_led_project",
			actor:  func(f *fixture) user.User { return f.lead },
			target: func(f *fixture) user.User { return f.dev },
			lead:   func(f *fixture) *string { return &f.lead.ID },
		},
		{
			name:    "lead_unrelated_to_project_is_rejected",
			actor:   func(f *fixture) user.User { return f.lead2 },
			target:  func(f *fixture) user.User { return f.dev },
			lead:    func(f *fixture) *string { return &f.lead.ID },
			wantErr: policy.ErrNotRelatedToProject,
		},
		{
			name:   "lead_as_member_may_attach",
			actor:  func(f *fixture) user.User { return f.lead2 },
			target: func(f *fixture) user.User { return f.dev },
			lead:   func(f *fixture) *string { return &f.lead.ID },
			setup: func(f *fixture, p project.Project) {
				// lead2 is merely a member, which is relation enough
				err := f.store.Add(context.Background(), membership.Membership{
					ID: "m-lead2", ProjectID: p.ID, UserID: f.lead2.ID,
					AssignedBy: f.admin.ID, CreatedAt: time.Now().UTC(),
				})
				if err != nil {
					t.Fatalf("seed membership: %v", err)
				}
			},
		},
		{
			name:    "lead_cannot_attach_lead",
			actor:   func(f *fixture) user.User { return f.lead },
			target:  func(f *fixture) user.User { return f.lead2 },
			lead:    func(f *fixture) *string { return &f.lead.ID },
			wantErr: policy.ErrInvalidTargetRole,
		},
		{
			name:    "developer_never_assigns",
			actor:   func(f *fixture) user.User { return f.dev },
			target:  func(f *fixture) user.User { return f.dev2 },
			wantErr: policy.ErrInsufficientRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			var leadID *string
			if tt.lead != nil {
				leadID = tt.lead(f)
			}
			p := f.newProject(t, f.admin.ID, leadID)

			if tt.setup != nil {
				tt.setup(f, p)
			}

			m, err := f.engine.Assign(context.Background(), tt.actor(f).ID, p.ID, tt.target(f).ID)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.ProjectID != p.ID || m.UserID != tt.target(f).ID {
				t.Fatalf("membership has wrong pair: %+v", m)
			}
			if m.AssignedBy != tt.actor(f).ID {
				t.Fatalf("assignedBy = %s, want actor %s", m.AssignedBy, tt.actor(f).ID)
			}
		})
	}
}

func TestAssign_DuplicateRejected(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	if _, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	_, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID)
	if !errors.Is(err, membership.ErrDuplicate) {
		t.Fatalf("second assign: got %v, want ErrDuplicate", err)
	}

	members, err := f.store.ListByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected exactly one membership, got %d", len(members))
	}
}

func TestAssign_ConcurrentDuplicate(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, membership.ErrDuplicate):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if ok != 1 || dup != 1 {
		t.Fatalf("want exactly one success and one duplicate, got ok=%d dup=%d", ok, dup)
	}
}

func TestAssign_MissingProjectAndTarget(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, nil)

	ctx := context.Background()

	_, err := f.engine.Assign(ctx, f.admin.ID, "2b6e7e09-52dd-4f63-9c6b-000000000000", f.lead2.ID)
	if !errors.Is(err, policy.ErrProjectNotFound) {
		t.Fatalf("missing project: got %v", err)
	}

	_, err = f.engine.Assign(ctx, f.admin.ID, p.ID, "2b6e7e09-52dd-4f63-9c6b-111111111111")
	if !errors.Is(err, policy.ErrTargetNotFound) {
		t.Fatalf("missing target: got %v", err)
	}
}

func TestRemove_Policy(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	if _, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("seed assign: %v", err)
	}

	// developers cannot remove, not even themselves
	err := f.engine.Remove(ctx, f.dev.ID, p.ID, f.dev.ID)
	if !errors.Is(err, policy.ErrInsufficientRole) {
		t.Fatalf("dev self-remove: got %v, want ErrInsufficientRole", err)
	}

	// unrelated lead cannot remove
	err = f.engine.Remove(ctx, f.lead2.ID, p.ID, f.dev.ID)
	if !errors.Is(err, policy.ErrNotRelatedToProject) {
		t.Fatalf("unrelated lead remove: got %v, want ErrNotRelatedToProject", err)
	}

	// the project's lead can
	if err := f.engine.Remove(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("lead remove: %v", err)
	}

	members, _ := f.store.ListByProject(ctx, p.ID)
	if len(members) != 0 {
		t.Fatalf("membership not removed, %d left", len(members))
	}

	// removing again is a silent no-op
	if err := f.engine.Remove(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("remove of absent membership should be a no-op, got %v", err)
	}

	// admin removes unconditionally, no relation required
	if _, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("re-assign: %v", err)
	}
	if err := f.engine.Remove(ctx, f.admin.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("admin remove: %v", err)
	}
}

func TestRemove_LeadSelfRemoval(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	// lead2 joins as a member, then removes their own membership: allowed,
	// because the member relation qualifies them and self is not special.
	if err := f.store.Add(ctx, membership.Membership{
		ID: "m1", ProjectID: p.ID, UserID: f.lead2.ID,
		AssignedBy: f.admin.ID, CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := f.engine.Remove(ctx, f.lead2.ID, p.ID, f.lead2.ID); err != nil {
		t.Fatalf("self removal: %v", err)
	}
}

func TestAssignLead_Policy(t *testing.T) {
	tests := []struct {
		name    string
		actor   func(f *fixture) user.User
		newLead func(f *fixture) user.User
		wantErr error
	}{
		{
			name:    "admin_designates_project_lead",
			actor:   func(f *fixture) user.User { return f.admin },
			newLead: func(f *fixture) user.User { return f.lead2 },
		},
		{
			name:    "admin_may_designate_admin",
			actor:   func(f *fixture) user.User { return f.admin },
			newLead: func(f *fixture) user.User { return f.admin },
		},
		{
			name:    "developer_target_rejected",
			actor:   func(f *fixture) user.User { return f.admin },
			newLead: func(f *fixture) user.User { return f.dev },
			wantErr: policy.ErrInvalidTargetRole,
		},
		{
			name:    "lead_cannot_designate",
			actor:   func(f *fixture) user.User { return f.lead },
			newLead: func(f *fixture) user.User { return f.lead2 },
			wantErr: policy.ErrInsufficientRole,
		},
		{
			name:    "developer_cannot_designate",
			actor:   func(f *fixture) user.User { return f.dev },
			newLead: func(f *fixture) user.User { return f.lead2 },
			wantErr: policy.ErrInsufficientRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.newProject(t, f.admin.ID, &f.lead.ID)

			got, err := f.engine.AssignLead(context.Background(), tt.actor(f).ID, p.ID, tt.newLead(f).ID)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ProjectLeadID == nil || *got.ProjectLeadID != tt.newLead(f).ID {
				t.Fatalf("lead not set: %+v", got)
			}

			stored, _ := f.store.GetProject(context.Background(), p.ID)
			if stored.ProjectLeadID == nil || *stored.ProjectLeadID != tt.newLead(f).ID {
				t.Fatalf("lead not persisted: %+v", stored)
			}
		})
	}
}

func TestCascade_ProjectDelete(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	if _, err := f.engine.Assign(ctx, f.admin.ID, p.ID, f.lead2.ID); err != nil {
		t.Fatalf("assign lead2: %v", err)
	}
	if _, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("assign dev: %v", err)
	}

	if err := f.store.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	members, _ := f.store.ListByProject(ctx, p.ID)
	if len(members) != 0 {
		t.Fatalf("memberships survived project delete: %d", len(members))
	}
}

func TestCascade_UserDelete(t *testing.T) {
	f := newFixture(t)
	p1 := f.newProject(t, f.admin.ID, &f.lead.ID)
	p2 := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	for _, pid := range []string{p1.ID, p2.ID} {
		if _, err := f.engine.Assign(ctx, f.lead.ID, pid, f.dev.ID); err != nil {
			t.Fatalf("assign to %s: %v", pid, err)
		}
	}

	if err := f.store.DeleteUser(ctx, f.dev.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	left, _ := f.store.ListByUser(ctx, f.dev.ID)
	if len(left) != 0 {
		t.Fatalf("memberships survived user delete: %d", len(left))
	}
}

// TestScenario_EndToEnd walks the full scripted sequence: admin attaches a
// lead, admin is refused a developer target, the project lead attaches the
// developer, duplicates are rejected, developers cannot remove, and project
// deletion sweeps all memberships.
func TestScenario_EndToEnd(t *testing.T) {
	f := newFixture(t)
	p := f.newProject(t, f.admin.ID, &f.lead.ID)

	ctx := context.Background()

	if _, err := f.engine.Assign(ctx, f.admin.ID, p.ID, f.lead2.ID); err != nil {
		t.Fatalf("ASSIGN(admin, P, L2): %v", err)
	}

	if _, err := f.engine.Assign(ctx, f.admin.ID, p.ID, f.dev.ID); !errors.Is(err, policy.ErrInvalidTargetRole) {
		t.Fatalf("ASSIGN(admin, P, D1): got %v, want ErrInvalidTargetRole", err)
	}

	if _, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID); err != nil {
		t.Fatalf("ASSIGN(L1, P, D1): %v", err)
	}

	if _, err := f.engine.Assign(ctx, f.lead.ID, p.ID, f.dev.ID); !errors.Is(err, membership.ErrDuplicate) {
		t.Fatalf("repeat ASSIGN(L1, P, D1): got %v, want ErrDuplicate", err)
	}

	if err := f.engine.Remove(ctx, f.dev.ID, p.ID, f.dev.ID); !errors.Is(err, policy.ErrInsufficientRole) {
		t.Fatalf("REMOVE(D1, P, D1): got %v, want ErrInsufficientRole", err)
	}

	if err := f.store.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete P: %v", err)
	}

	members, _ := f.store.ListByProject(ctx, p.ID)
	if len(members) != 0 {
		t.Fatalf("expected no memberships after delete, got %d", len(members))
	}
}
