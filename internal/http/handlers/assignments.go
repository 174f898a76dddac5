package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecthub-dev/projecthub/internal/config"
	"github.com/projecthub-dev/projecthub/internal/domain/job"
	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/http/middlewares"
	"github.com/projecthub-dev/projecthub/internal/jobs"
	"github.com/projecthub-dev/projecthub/internal/policy"
	"github.com/projecthub-dev/projecthub/internal/repo/postgres"
	"github.com/projecthub-dev/projecthub/internal/utils"
)

func parsePositiveInt(raw string, max int) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrRange
	}
	if n > max {
		n = max
	}
	return n, nil
}

type JobsCreator interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type MembersLister interface {
	ListByProjectCursor(ctx context.Context, projectID string, limit int, afterCreatedAt time.Time, afterID string) ([]membership.Membership, *string, bool, error)
}

// AssignmentsHandler fronts the policy engine for membership and lead
// assignment. Every decision is made by the engine against stored roles; the
// handler only parses, translates errors, and enqueues notifications.
type AssignmentsHandler struct {
	engine   *policy.Engine
	members  MembersLister
	jobsRepo JobsCreator
}

func NewAssignmentsHandler(engine *policy.Engine, members MembersLister, jobsRepo JobsCreator) *AssignmentsHandler {
	return &AssignmentsHandler{engine: engine, members: members, jobsRepo: jobsRepo}
}

func (h *AssignmentsHandler) actor(ctx *gin.Context) (string, bool) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || userID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return "", false
	}
	return userID, true
}

func (h *AssignmentsHandler) Assign(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	projectID := ctx.Param("id")

	if !utils.IsUUID(projectID) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	var req membership.AssignRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	m, err := h.engine.Assign(cctx, actorID, projectID, req.UserID)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	h.enqueueAssignmentNotice(cctx, ctx, m)

	ctx.JSON(http.StatusCreated, m)
}

// Remove unassigns a user. Absent memberships still return 204: the caller
// cannot probe who is on a project through status codes.
func (h *AssignmentsHandler) Remove(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	projectID := ctx.Param("id")
	targetID := ctx.Param("userId")

	if !utils.IsUUID(projectID) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}
	if !utils.IsUUID(targetID) {
		RespondBadRequest(ctx, "user id must be a valid UUID", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if err := h.engine.Remove(cctx, actorID, projectID, targetID); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *AssignmentsHandler) AssignLead(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	projectID := ctx.Param("id")

	if !utils.IsUUID(projectID) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	var req membership.AssignLeadRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	p, err := h.engine.AssignLead(cctx, actorID, projectID, req.ProjectLeadID)
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	h.enqueueLeadAssigned(cctx, ctx, projectID, req.ProjectLeadID, actorID)

	ctx.JSON(http.StatusOK, p)
}

// ListMembers pages through a project's members with an opaque cursor.
func (h *AssignmentsHandler) ListMembers(ctx *gin.Context) {
	actorID, ok := h.actor(ctx)
	if !ok {
		return
	}

	projectID := ctx.Param("id")

	if !utils.IsUUID(projectID) {
		RespondBadRequest(ctx, "project id must be a valid UUID", nil)
		return
	}

	limit := 50
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := parsePositiveInt(raw, 200); err == nil {
			limit = n
		} else {
			RespondBadRequest(ctx, "limit must be a positive integer", nil)
			return
		}
	}

	var afterCreatedAt time.Time
	var afterID string

	if raw := ctx.Query("cursor"); raw != "" {
		cur, err := utils.DecodeMemberCursor(raw)
		if err != nil {
			RespondBadRequest(ctx, "invalid cursor", nil)
			return
		}
		afterCreatedAt = cur.CreatedAt
		afterID = cur.ID
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	// visibility rules apply to the member list as well
	if _, err := h.engine.AuthorizeProjectView(cctx, actorID, projectID); err != nil {
		respondPolicyError(ctx, err)
		return
	}

	items, nextCursor, hasMore, err := h.members.ListByProjectCursor(cctx, projectID, limit, afterCreatedAt, afterID)
	if err != nil {
		RespondInternal(ctx, "Could not list members")
		return
	}

	resp := gin.H{
		"items":   items,
		"count":   len(items),
		"hasMore": hasMore,
	}
	if nextCursor != nil {
		resp["nextCursor"] = *nextCursor
	}

	ctx.JSON(http.StatusOK, resp)
}

// Notifications ride the jobs table; a full queue must not fail the
// assignment that already committed, so enqueue errors are logged by the
// repo metrics and otherwise swallowed.
func (h *AssignmentsHandler) enqueueAssignmentNotice(cctx context.Context, ctx *gin.Context, m membership.Membership) {
	if h.jobsRepo == nil {
		return
	}

	payload := jobs.AssignmentNoticePayload{
		ProjectID:  m.ProjectID,
		UserID:     m.UserID,
		AssignedBy: m.AssignedBy,
		RequestID:  requestIDFrom(ctx),
		AssignedAt: m.CreatedAt,
	}

	raw, err := payload.JSON()
	if err != nil {
		return
	}

	key := "assignment:notice:" + m.ID
	uid := m.UserID

	_, err = h.jobsRepo.Create(cctx, job.CreateRequest{
		Type:           string(jobs.JobAssignmentNotice),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
		UserID:         &uid,
	})
	if err != nil && !postgres.IsUniqueViolation(err) {
		slog.Default().Warn("enqueue assignment notice failed", "membership_id", m.ID, "err", err)
	}
}

func (h *AssignmentsHandler) enqueueLeadAssigned(cctx context.Context, ctx *gin.Context, projectID, leadID, actorID string) {
	if h.jobsRepo == nil {
		return
	}

	payload := jobs.LeadAssignedPayload{
		ProjectID:  projectID,
		LeadID:     leadID,
		AssignedBy: actorID,
		RequestID:  requestIDFrom(ctx),
		AssignedAt: time.Now().UTC(),
	}

	raw, err := payload.JSON()
	if err != nil {
		return
	}

	key := "lead:assigned:" + projectID + ":" + leadID
	uid := leadID

	_, err = h.jobsRepo.Create(cctx, job.CreateRequest{
		Type:           string(jobs.JobLeadAssigned),
		Payload:        raw,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
		UserID:         &uid,
	})
	if err != nil && !postgres.IsUniqueViolation(err) {
		slog.Default().Warn("enqueue lead assigned failed", "project_id", projectID, "err", err)
	}
}
