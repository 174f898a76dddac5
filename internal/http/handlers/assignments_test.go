package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecthub-dev/projecthub/internal/auth"
	"github.com/projecthub-dev/projecthub/internal/domain/job"
	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/role"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
	"github.com/projecthub-dev/projecthub/internal/http/handlers"
	"github.com/projecthub-dev/projecthub/internal/http/middlewares"
	"github.com/projecthub-dev/projecthub/internal/policy"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Stable IDs so tests can assert on relations.
const (
	adminID   = "11111111-1111-1111-1111-111111111111"
	leadID    = "22222222-2222-2222-2222-222222222222"
	devID     = "33333333-3333-3333-3333-333333333333"
	dev2ID    = "44444444-4444-4444-4444-444444444444"
	lead2ID   = "55555555-5555-5555-5555-555555555555"
	projectID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
)

// Fakes for the policy engine's stores.

type fakeUserStore struct {
	users map[string]user.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

type fakeProjectStore struct {
	projects     map[string]project.Project
	setLead      func(projectID string, leadID *string) error
	listByMember func(userID string) ([]project.Project, error)
}

func (f *fakeProjectStore) GetByID(ctx context.Context, id string) (project.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

func (f *fakeProjectStore) List(ctx context.Context) ([]project.Project, error) {
	out := make([]project.Project, 0, len(f.projects))
	for _, p := range f.projects {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProjectStore) ListByMember(ctx context.Context, userID string) ([]project.Project, error) {
	if f.listByMember != nil {
		return f.listByMember(userID)
	}
	return nil, nil
}

func (f *fakeProjectStore) SetLead(ctx context.Context, projectID string, leadID *string) error {
	if f.setLead != nil {
		return f.setLead(projectID, leadID)
	}
	return nil
}

type fakeMembershipStore struct {
	members map[string][]membership.Membership // projectID -> rows
	addErr  error
	added   []membership.Membership
	removed [][2]string
}

func (f *fakeMembershipStore) Add(ctx context.Context, m membership.Membership) error {
	if f.addErr != nil {
		return f.addErr
	}
	for _, ex := range f.members[m.ProjectID] {
		if ex.UserID == m.UserID {
			return membership.ErrDuplicate
		}
	}
	f.added = append(f.added, m)
	return nil
}

func (f *fakeMembershipStore) Remove(ctx context.Context, projectID, userID string) error {
	f.removed = append(f.removed, [2]string{projectID, userID})
	return nil
}

func (f *fakeMembershipStore) ListByProject(ctx context.Context, projectID string) ([]membership.Membership, error) {
	return f.members[projectID], nil
}

func (f *fakeMembershipStore) ListByUser(ctx context.Context, userID string) ([]membership.Membership, error) {
	return nil, nil
}

type fakeDocCounter struct{}

func (fakeDocCounter) CountByProjects(ctx context.Context, projectIDs []string) (int, error) {
	return 0, nil
}

type fakeJobsCreator struct {
	created []job.CreateRequest
	err     error
}

func (f *fakeJobsCreator) Create(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	if f.err != nil {
		return job.Job{}, f.err
	}
	f.created = append(f.created, req)
	return job.New(req), nil
}

type fakeMembersLister struct {
	listFn func(ctx context.Context, projectID string, limit int, afterCreatedAt time.Time, afterID string) ([]membership.Membership, *string, bool, error)
}

func (f *fakeMembersLister) ListByProjectCursor(ctx context.Context, projectID string, limit int, afterCreatedAt time.Time, afterID string) ([]membership.Membership, *string, bool, error) {
	if f.listFn != nil {
		return f.listFn(ctx, projectID, limit, afterCreatedAt, afterID)
	}
	return nil, nil, false, nil
}

// fakeVerifier lets each request pick its actor: the bearer token IS the
// actor's user id.
type fakeVerifier struct{}

func (fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	return &auth.Claims{UserID: token, TokenType: "access"}, nil
}

type fixture struct {
	users       *fakeUserStore
	projects    *fakeProjectStore
	memberships *fakeMembershipStore
	jobs        *fakeJobsCreator
	lister      *fakeMembersLister
	router      *gin.Engine
}

// newFixture seeds one project created and led by leadID, with devID already
// a member.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	lead := leadID
	f := &fixture{
		users: &fakeUserStore{users: map[string]user.User{
			adminID: {ID: adminID, Role: role.Admin},
			leadID:  {ID: leadID, Role: role.ProjectLead},
			lead2ID: {ID: lead2ID, Role: role.ProjectLead},
			devID:   {ID: devID, Role: role.Developer},
			dev2ID:  {ID: dev2ID, Role: role.Developer},
		}},
		projects: &fakeProjectStore{projects: map[string]project.Project{
			projectID: {ID: projectID, Name: "Apollo", Status: project.StatusActive, CreatedBy: leadID, ProjectLeadID: &lead},
		}},
		memberships: &fakeMembershipStore{members: map[string][]membership.Membership{
			projectID: {{ID: "m1", ProjectID: projectID, UserID: devID, AssignedBy: leadID}},
		}},
		jobs:   &fakeJobsCreator{},
		lister: &fakeMembersLister{},
	}

	engine := policy.NewEngine(f.users, f.projects, f.memberships, fakeDocCounter{})
	h := handlers.NewAssignmentsHandler(engine, f.lister, f.jobs)

	authMw := middlewares.NewAuthMiddleware(fakeVerifier{})

	r := gin.New()
	r.Use(authMw.RequireAuth())
	r.POST("/projects/:id/assign", h.Assign)
	r.DELETE("/projects/:id/assign/:userId", h.Remove)
	r.PATCH("/projects/:id/assign-lead", h.AssignLead)
	r.GET("/projects/:id/members", h.ListMembers)

	f.router = r
	return f
}

func doJSON(r *gin.Engine, method, url, actor, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	req.Header.Set("Authorization", "Bearer "+actor)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAssignMember(t *testing.T) {
	tests := []struct {
		name           string
		actor          string
		projectID      string
		targetID       string
		wantStatusCode int
		wantErrorCode  string
	}{
		{
			name:           "admin_assigns_project_lead",
			actor:          adminID,
			projectID:      projectID,
			targetID:       lead2ID,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "admin_assigns_developer_is_invalid_target",
			actor:          adminID,
			projectID:      projectID,
			targetID:       dev2ID,
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "invalid_target_role",
		},
		{
			name:           "lead_assigns_developer_to_own_project",
			actor:          leadID,
			projectID:      projectID,
			targetID:       dev2ID,
			wantStatusCode: http.StatusCreated,
		},
		{
			name:           "lead_assigns_lead_is_invalid_target",
			actor:          leadID,
			projectID:      projectID,
			targetID:       lead2ID,
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "invalid_target_role",
		},
		{
			name:           "unrelated_lead_is_forbidden",
			actor:          lead2ID,
			projectID:      projectID,
			targetID:       dev2ID,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "developer_is_forbidden",
			actor:          devID,
			projectID:      projectID,
			targetID:       dev2ID,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "duplicate_membership",
			actor:          leadID,
			projectID:      projectID,
			targetID:       devID,
			wantStatusCode: http.StatusBadRequest,
			wantErrorCode:  "duplicate_membership",
		},
		{
			name:           "unknown_project",
			actor:          adminID,
			projectID:      "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
			targetID:       lead2ID,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "unknown_target_user",
			actor:          adminID,
			projectID:      projectID,
			targetID:       "cccccccc-cccc-cccc-cccc-cccccccccccc",
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			body := `{"userId": "` + tt.targetID + `"}`
			w := doJSON(f.router, http.MethodPost, "/projects/"+tt.projectID+"/assign", tt.actor, body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantErrorCode != "" {
				var resp struct {
					Error struct {
						Details map[string]string `json:"details"`
					} `json:"error"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
				}
				if resp.Error.Details["code"] != tt.wantErrorCode {
					t.Fatalf("got details code %q, want %q", resp.Error.Details["code"], tt.wantErrorCode)
				}
			}

			if tt.wantStatusCode == http.StatusCreated {
				if len(f.memberships.added) != 1 {
					t.Fatalf("expected one membership row, got %d", len(f.memberships.added))
				}
				if len(f.jobs.created) != 1 {
					t.Fatalf("expected one notification job, got %d", len(f.jobs.created))
				}

				var m membership.Membership
				if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
					t.Fatalf("failed to unmarshal membership: %v", err)
				}
				if m.UserID != tt.targetID || m.AssignedBy != tt.actor {
					t.Fatalf("unexpected membership: %+v", m)
				}
			} else if len(f.memberships.added) != 0 {
				t.Fatalf("membership must not be written on rejection")
			}
		})
	}
}

func TestRemoveMember(t *testing.T) {
	tests := []struct {
		name           string
		actor          string
		targetID       string
		wantStatusCode int
		wantRemoveCall bool
	}{
		{
			name:           "admin_removes_member",
			actor:          adminID,
			targetID:       devID,
			wantStatusCode: http.StatusNoContent,
			wantRemoveCall: true,
		},
		{
			name:           "lead_removes_member_of_own_project",
			actor:          leadID,
			targetID:       devID,
			wantStatusCode: http.StatusNoContent,
			wantRemoveCall: true,
		},
		{
			// removing a user who is not assigned is still 204 so the
			// response does not leak who is on the project
			name:           "remove_absent_membership_is_no_op",
			actor:          adminID,
			targetID:       dev2ID,
			wantStatusCode: http.StatusNoContent,
			wantRemoveCall: true,
		},
		{
			name:           "developer_is_forbidden",
			actor:          devID,
			targetID:       devID,
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "unrelated_lead_is_forbidden",
			actor:          lead2ID,
			targetID:       devID,
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			w := doJSON(f.router, http.MethodDelete, "/projects/"+projectID+"/assign/"+tt.targetID, tt.actor, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			gotCall := len(f.memberships.removed) > 0
			if gotCall != tt.wantRemoveCall {
				t.Fatalf("remove call = %v, want %v", gotCall, tt.wantRemoveCall)
			}
		})
	}
}

func TestAssignLead(t *testing.T) {
	tests := []struct {
		name           string
		actor          string
		newLeadID      string
		wantStatusCode int
	}{
		{
			name:           "admin_designates_lead",
			actor:          adminID,
			newLeadID:      lead2ID,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "admin_can_designate_admin",
			actor:          adminID,
			newLeadID:      adminID,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "developer_cannot_lead",
			actor:          adminID,
			newLeadID:      devID,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "lead_cannot_designate",
			actor:          leadID,
			newLeadID:      lead2ID,
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			body := `{"projectLeadId": "` + tt.newLeadID + `"}`
			w := doJSON(f.router, http.MethodPatch, "/projects/"+projectID+"/assign-lead", tt.actor, body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var p project.Project
				if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
					t.Fatalf("failed to unmarshal project: %v", err)
				}
				if p.ProjectLeadID == nil || *p.ProjectLeadID != tt.newLeadID {
					t.Fatalf("project lead not updated: %+v", p)
				}
				if len(f.jobs.created) != 1 {
					t.Fatalf("expected one notification job, got %d", len(f.jobs.created))
				}
			}
		})
	}
}

func TestListMembers(t *testing.T) {
	now := time.Now().UTC()

	t.Run("member_page_with_cursor", func(t *testing.T) {
		f := newFixture(t)

		f.lister.listFn = func(ctx context.Context, pid string, limit int, afterCreatedAt time.Time, afterID string) ([]membership.Membership, *string, bool, error) {
			if pid != projectID {
				t.Fatalf("unexpected project id %q", pid)
			}
			if limit != 1 {
				t.Fatalf("unexpected limit %d", limit)
			}
			next := "next-cursor"
			return []membership.Membership{
				{ID: "m1", ProjectID: pid, UserID: devID, AssignedBy: leadID, CreatedAt: now},
			}, &next, true, nil
		}

		w := doJSON(f.router, http.MethodGet, "/projects/"+projectID+"/members?limit=1", leadID, "")

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}

		var resp struct {
			Items      []membership.Membership `json:"items"`
			Count      int                     `json:"count"`
			HasMore    bool                    `json:"hasMore"`
			NextCursor string                  `json:"nextCursor"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Count != 1 || !resp.HasMore || resp.NextCursor != "next-cursor" {
			t.Fatalf("unexpected page: %+v", resp)
		}
	})

	t.Run("invalid_cursor", func(t *testing.T) {
		f := newFixture(t)

		w := doJSON(f.router, http.MethodGet, "/projects/"+projectID+"/members?cursor=%21%21", leadID, "")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}
	})

	t.Run("developer_outside_project_is_forbidden", func(t *testing.T) {
		f := newFixture(t)

		w := doJSON(f.router, http.MethodGet, "/projects/"+projectID+"/members", dev2ID, "")

		if w.Code != http.StatusForbidden {
			t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
		}
	})
}
