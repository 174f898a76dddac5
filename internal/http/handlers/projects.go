package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecthub-dev/projecthub/internal/cache"
	"github.com/projecthub-dev/projecthub/internal/config"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
	"github.com/projecthub-dev/projecthub/internal/http/middlewares"
	"github.com/projecthub-dev/projecthub/internal/policy"
	"github.com/projecthub-dev/projecthub/internal/utils"
)

type ProjectsStore interface {
	Create(ctx context.Context, req project.CreateProjectRequest, createdBy string) (project.Project, error)
	Update(ctx context.Context, id string, req project.UpdateProjectRequest) (project.Project, error)
	Delete(ctx context.Context, id string) error
}

type ActorReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type ProjectsHandler struct {
	repo   ProjectsStore
	users  ActorReader
	engine *policy.Engine
	cache  *cache.Cache
}

func NewProjectsHandler(repo ProjectsStore, users ActorReader, engine *policy.Engine, listCache *cache.Cache) *ProjectsHandler {
	return &ProjectsHandler{repo: repo, users: users, engine: engine, cache: listCache}
}

func (h *ProjectsHandler) actor(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return "", false
	}
	return userID, true
}

func (h *ProjectsHandler) CreateProject(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	var req project.CreateProjectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	actor, err := h.users.GetByID(cctx, actorID)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	if err := policy.CanCreateProject(actor); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	p, err := h.repo.Create(cctx, req, actor.ID)
	if err != nil {
		RespondInternal(ctx, "Could not create project")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusCreated, p)
}

// ListProjects returns what the actor may see: everything for admins and
// leads, membership-only for developers.
func (h *ProjectsHandler) ListProjects(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	cacheKey := "projects:list:v1:actor=" + actorID

	if h.cache != nil {
		if cached, hit := h.cache.Get(cacheKey); hit {
			RespondJSONWithETag(ctx, http.StatusOK, cached)
			return
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	projects, err := h.engine.VisibleProjects(cctx, actorID)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	payload := gin.H{
		"items": projects,
		"count": len(projects),
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, payload)
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}

func (h *ProjectsHandler) GetProject(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	p, err := h.engine.AuthorizeProjectView(cctx, actorID, id)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, p)
}

func (h *ProjectsHandler) UpdateProject(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	var req project.UpdateProjectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if _, err := h.engine.AuthorizeProjectUpdate(cctx, actorID, id); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	p, err := h.repo.Update(cctx, id, req)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return
		}
		RespondInternal(ctx, "Could not update project")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, p)
}

// DeleteProject removes the project with its memberships and documents.
func (h *ProjectsHandler) DeleteProject(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	actor, err := h.users.GetByID(cctx, actorID)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	if err := policy.CanDeleteProject(actor); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	err = h.repo.Delete(cctx, id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return
		}
		RespondInternal(ctx, "Could not delete project")
		return
	}

	h.invalidateLists()

	ctx.Status(http.StatusNoContent)
}

// visibility differs per actor, so any mutation drops every cached list
func (h *ProjectsHandler) invalidateLists() {
	if h.cache != nil {
		h.cache.Clear()
	}
}
