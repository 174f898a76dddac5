package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/role"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
)

// Keep these interfaces small so tests can fake them easily; the postgres
// and memory repos both satisfy them.

type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type ProjectStore interface {
	GetByID(ctx context.Context, id string) (project.Project, error)
	List(ctx context.Context) ([]project.Project, error)
	ListByMember(ctx context.Context, userID string) ([]project.Project, error)
	SetLead(ctx context.Context, projectID string, leadID *string) error
}

type MembershipStore interface {
	// Add must be atomic with the uniqueness check: a duplicate
	// (projectID, userID) pair fails with membership.ErrDuplicate, never
	// a second row.
	Add(ctx context.Context, m membership.Membership) error
	// Remove is a no-op when the membership does not exist.
	Remove(ctx context.Context, projectID, userID string) error
	ListByProject(ctx context.Context, projectID string) ([]membership.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]membership.Membership, error)
}

type DocumentStore interface {
	CountByProjects(ctx context.Context, projectIDs []string) (int, error)
}

// Engine is the assignment/visibility decision procedure. The actor is
// always passed in explicitly and its role is re-read from the store on
// every call, so a stale token can never out-privilege the database.
type Engine struct {
	users       UserStore
	projects    ProjectStore
	memberships MembershipStore
	documents   DocumentStore
}

func NewEngine(users UserStore, projects ProjectStore, memberships MembershipStore, documents DocumentStore) *Engine {
	return &Engine{
		users:       users,
		projects:    projects,
		memberships: memberships,
		documents:   documents,
	}
}

// isRelated reports the lead/creator/member relation used to gate what a
// project_lead may touch. All three relations grant identical rights, so no
// precedence ordering is needed.
func isRelated(actorID string, p project.Project, members []membership.Membership) bool {
	if p.ProjectLeadID != nil && *p.ProjectLeadID == actorID {
		return true
	}
	if p.CreatedBy == actorID {
		return true
	}
	for _, m := range members {
		if m.UserID == actorID {
			return true
		}
	}
	return false
}

// Assign decides and performs a membership assignment.
//
// admin        -> may attach only project_lead targets
// project_lead -> may attach only developer targets, and only to projects
//                 they lead, created, or belong to
// developer    -> denied
func (e *Engine) Assign(ctx context.Context, actorID, projectID, targetID string) (membership.Membership, error) {
	actor, err := e.loadActor(ctx, actorID)
	if err != nil {
		return membership.Membership{}, err
	}

	p, err := e.loadProject(ctx, projectID)
	if err != nil {
		return membership.Membership{}, err
	}

	target, err := e.loadTarget(ctx, targetID)
	if err != nil {
		return membership.Membership{}, err
	}

	switch actor.Role {
	case role.Admin:
		if target.Role != role.ProjectLead {
			return membership.Membership{}, ErrInvalidTargetRole
		}

	case role.ProjectLead:
		members, err := e.memberships.ListByProject(ctx, projectID)
		if err != nil {
			return membership.Membership{}, storageFault(err)
		}
		if !isRelated(actor.ID, p, members) {
			return membership.Membership{}, ErrNotRelatedToProject
		}
		if target.Role != role.Developer {
			return membership.Membership{}, ErrInvalidTargetRole
		}

	case role.Developer:
		return membership.Membership{}, ErrInsufficientRole

	default:
		// unknown role in storage: deny, never guess
		return membership.Membership{}, ErrInsufficientRole
	}

	m := membership.Membership{
		ID:         uuid.NewString(),
		ProjectID:  p.ID,
		UserID:     target.ID,
		AssignedBy: actor.ID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := mapMembershipErr(e.memberships.Add(ctx, m)); err != nil {
		return membership.Membership{}, err
	}

	return m, nil
}

// Remove decides and performs a membership removal. Admins remove
// unconditionally; leads under the same relation test as Assign; developers
// never. Removing an absent membership is a no-op: the caller cannot tell
// "removed" from "was never there", which matches the observed contract.
// Self-removal is permitted whenever the actor otherwise qualifies.
func (e *Engine) Remove(ctx context.Context, actorID, projectID, targetID string) error {
	actor, err := e.loadActor(ctx, actorID)
	if err != nil {
		return err
	}

	p, err := e.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	if _, err := e.loadTarget(ctx, targetID); err != nil {
		return err
	}

	switch actor.Role {
	case role.Admin:
		// unconditional

	case role.ProjectLead:
		members, err := e.memberships.ListByProject(ctx, projectID)
		if err != nil {
			return storageFault(err)
		}
		if !isRelated(actor.ID, p, members) {
			return ErrNotRelatedToProject
		}

	case role.Developer:
		return ErrInsufficientRole

	default:
		return ErrInsufficientRole
	}

	if err := e.memberships.Remove(ctx, projectID, targetID); err != nil {
		return storageFault(err)
	}
	return nil
}

// AssignLead designates a project's lead. Admin only; the new lead must hold
// a role that can lead (project_lead or admin). This is leadership, distinct
// from membership: it does not create a membership row.
func (e *Engine) AssignLead(ctx context.Context, actorID, projectID, newLeadID string) (project.Project, error) {
	actor, err := e.loadActor(ctx, actorID)
	if err != nil {
		return project.Project{}, err
	}

	if actor.Role != role.Admin {
		return project.Project{}, ErrInsufficientRole
	}

	p, err := e.loadProject(ctx, projectID)
	if err != nil {
		return project.Project{}, err
	}

	newLead, err := e.loadTarget(ctx, newLeadID)
	if err != nil {
		return project.Project{}, err
	}

	if !newLead.Role.CanLead() {
		return project.Project{}, ErrInvalidTargetRole
	}

	leadID := newLead.ID
	if err := e.projects.SetLead(ctx, p.ID, &leadID); err != nil {
		return project.Project{}, storageFault(err)
	}

	p.ProjectLeadID = &leadID
	return p, nil
}

// CanCreateProject gates project creation: admins and project leads only.
func CanCreateProject(actor user.User) error {
	switch actor.Role {
	case role.Admin, role.ProjectLead:
		return nil
	default:
		return ErrInsufficientRole
	}
}

// CanUpdateProject gates project mutation. Leads may update only projects
// they lead or created; membership alone is not enough here.
func CanUpdateProject(actor user.User, p project.Project) error {
	switch actor.Role {
	case role.Admin:
		return nil
	case role.ProjectLead:
		if (p.ProjectLeadID != nil && *p.ProjectLeadID == actor.ID) || p.CreatedBy == actor.ID {
			return nil
		}
		return ErrNotRelatedToProject
	default:
		return ErrInsufficientRole
	}
}

// CanDeleteProject gates project deletion: admin only.
func CanDeleteProject(actor user.User) error {
	if actor.Role == role.Admin {
		return nil
	}
	return ErrInsufficientRole
}

// AuthorizeProjectUpdate loads what CanUpdateProject needs and returns the
// project on success.
func (e *Engine) AuthorizeProjectUpdate(ctx context.Context, actorID, projectID string) (project.Project, error) {
	actor, err := e.loadActor(ctx, actorID)
	if err != nil {
		return project.Project{}, err
	}
	p, err := e.loadProject(ctx, projectID)
	if err != nil {
		return project.Project{}, err
	}
	if err := CanUpdateProject(actor, p); err != nil {
		return project.Project{}, err
	}
	return p, nil
}

// AuthorizeDocumentChange gates document upload/delete: project leads with
// the lead/creator/member relation. Admins do not upload; nothing in the
// capability set grants it, and deny-by-default applies.
func (e *Engine) AuthorizeDocumentChange(ctx context.Context, actorID, projectID string) (project.Project, error) {
	actor, err := e.loadActor(ctx, actorID)
	if err != nil {
		return project.Project{}, err
	}

	p, err := e.loadProject(ctx, projectID)
	if err != nil {
		return project.Project{}, err
	}

	if actor.Role != role.ProjectLead {
		return project.Project{}, ErrInsufficientRole
	}

	members, err := e.memberships.ListByProject(ctx, projectID)
	if err != nil {
		return project.Project{}, storageFault(err)
	}
	if !isRelated(actor.ID, p, members) {
		return project.Project{}, ErrNotRelatedToProject
	}
	return p, nil
}
