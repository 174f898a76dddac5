package policy

import (
	"context"

	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/role"
)

// VisibleProjects answers "what may this actor read". Visibility is wider
// than mutation rights: project leads see every project, since an admin may
// assign them to any of them. Developers see only projects they belong to.
func (e *Engine) VisibleProjects(ctx context.Context, actorID string) ([]project.Project, error) {
	actor, err := e.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case role.Admin, role.ProjectLead:
		ps, err := e.projects.List(ctx)
		if err != nil {
			return nil, storageFault(err)
		}
		return ps, nil

	case role.Developer:
		ps, err := e.projects.ListByMember(ctx, actor.ID)
		if err != nil {
			return nil, storageFault(err)
		}
		return ps, nil

	default:
		return nil, ErrInsufficientRole
	}
}

// AuthorizeProjectView applies the same visibility rule to a single project.
func (e *Engine) AuthorizeProjectView(ctx context.Context, actorID, projectID string) (project.Project, error) {
	actor, err := e.loadActor(ctx, actorID)
	if err != nil {
		return project.Project{}, err
	}

	p, err := e.loadProject(ctx, projectID)
	if err != nil {
		return project.Project{}, err
	}

	switch actor.Role {
	case role.Admin, role.ProjectLead:
		return p, nil

	case role.Developer:
		members, err := e.memberships.ListByProject(ctx, projectID)
		if err != nil {
			return project.Project{}, storageFault(err)
		}
		for _, m := range members {
			if m.UserID == actor.ID {
				return p, nil
			}
		}
		return project.Project{}, ErrNotRelatedToProject

	default:
		return project.Project{}, ErrInsufficientRole
	}
}
