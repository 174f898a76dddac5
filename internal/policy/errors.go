package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
)

// Every rejection the engine can produce is one of these sentinels, so
// callers branch with errors.Is and map to transport codes. Anything the
// stores return that is not a known domain error is wrapped in
// ErrStorageUnavailable: a service fault, not a policy decision.
var (
	ErrInsufficientRole    = errors.New("role not permitted to perform this operation")
	ErrInvalidTargetRole   = errors.New("target user role is not allowed for this operation")
	ErrNotRelatedToProject = errors.New("actor is not lead, creator or member of this project")
	ErrTargetNotFound      = errors.New("target user not found")
	ErrProjectNotFound     = errors.New("project not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)

func storageFault(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// loadProject and loadTarget translate store not-found errors into the
// policy taxonomy and everything else into a storage fault.

func (e *Engine) loadProject(ctx context.Context, id string) (project.Project, error) {
	p, err := e.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			return project.Project{}, ErrProjectNotFound
		}
		return project.Project{}, storageFault(err)
	}
	return p, nil
}

func (e *Engine) loadTarget(ctx context.Context, id string) (user.User, error) {
	u, err := e.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrTargetNotFound
		}
		return user.User{}, storageFault(err)
	}
	return u, nil
}

// loadActor keeps user.ErrNotFound as-is: a missing actor is an identity
// problem for the transport layer (401), not a policy rejection.
func (e *Engine) loadActor(ctx context.Context, id string) (user.User, error) {
	u, err := e.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, storageFault(err)
	}
	return u, nil
}

func mapMembershipErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, membership.ErrDuplicate) {
		return membership.ErrDuplicate
	}
	return storageFault(err)
}
