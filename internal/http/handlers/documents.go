package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecthub-dev/projecthub/internal/config"
	"github.com/projecthub-dev/projecthub/internal/domain/document"
	"github.com/projecthub-dev/projecthub/internal/domain/project"
	"github.com/projecthub-dev/projecthub/internal/http/middlewares"
	"github.com/projecthub-dev/projecthub/internal/policy"
	"github.com/projecthub-dev/projecthub/internal/utils"
)

type DocumentsStore interface {
	Create(ctx context.Context, req document.CreateDocumentRequest, projectID, uploadedBy string) (document.Document, error)
	GetByID(ctx context.Context, id string) (document.Document, error)
	ListByProject(ctx context.Context, projectID string) ([]document.Document, error)
	Delete(ctx context.Context, id string) error
}

// DocumentsHandler owns the per-project document metadata surface. Upload and
// delete are lead-only operations, checked against the project relation.
type DocumentsHandler struct {
	repo   DocumentsStore
	engine *policy.Engine
}

func NewDocumentsHandler(repo DocumentsStore, engine *policy.Engine) *DocumentsHandler {
	return &DocumentsHandler{repo: repo, engine: engine}
}

func (h *DocumentsHandler) actor(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return "", false
	}
	return userID, true
}

func (h *DocumentsHandler) Upload(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	projectID := ctx.Param("id")

	if !utils.IsUUID(projectID) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	var req document.CreateDocumentRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if _, err := h.engine.AuthorizeDocumentChange(cctx, actorID, projectID); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	d, err := h.repo.Create(cctx, req, projectID, actorID)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return
		}
		RespondInternal(ctx, "Could not store document")
		return
	}

	ctx.JSON(http.StatusCreated, d)
}

// List is readable by anyone who may view the project.
func (h *DocumentsHandler) List(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	projectID := ctx.Param("id")

	if !utils.IsUUID(projectID) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if _, err := h.engine.AuthorizeProjectView(cctx, actorID, projectID); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	docs, err := h.repo.ListByProject(cctx, projectID)
	if err != nil {
		RespondInternal(ctx, "Could not list documents")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": docs,
		"count": len(docs),
	})
}

func (h *DocumentsHandler) Delete(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	projectID := ctx.Param("id")
	docID := ctx.Param("docId")

	if !utils.IsUUID(projectID) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}
	if !utils.IsUUID(docID) {
		RespondBadRequest(ctx, "document id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if _, err := h.engine.AuthorizeDocumentChange(cctx, actorID, projectID); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	d, err := h.repo.GetByID(cctx, docID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			RespondNotFound(ctx, "Document not found")
			return
		}
		RespondInternal(ctx, "Could not delete document")
		return
	}

	// the doc must belong to the project in the URL
	if d.ProjectID != projectID {
		RespondNotFound(ctx, "Document not found")
		return
	}

	if err := h.repo.Delete(cctx, docID); err != nil {
		if errors.Is(err, document.ErrNotFound) {
			RespondNotFound(ctx, "Document not found")
			return
		}
		RespondInternal(ctx, "Could not delete document")
		return
	}

	ctx.Status(http.StatusNoContent)
}
