package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/projecthub-dev/projecthub/internal/domain/membership"
	"github.com/projecthub-dev/projecthub/internal/domain/user"
	"github.com/projecthub-dev/projecthub/internal/policy"
)

// respondPolicyError translates policy engine errors into the API envelope.
// Duplicate and wrong-target-role both map to 400; role and relation
// failures map to 403; missing project or user to 404.
func respondPolicyError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, membership.ErrDuplicate):
		RespondBadRequest(ctx, "User is already assigned to this project.", gin.H{"code": "duplicate_membership"})

	case errors.Is(err, policy.ErrInvalidTargetRole):
		RespondBadRequest(ctx, "Target user's role cannot be assigned this way.", gin.H{"code": "invalid_target_role"})

	case errors.Is(err, policy.ErrInsufficientRole):
		RespondForbidden(ctx, "forbidden", "Your role does not permit this action.")

	case errors.Is(err, policy.ErrNotRelatedToProject):
		RespondForbidden(ctx, "not_related", "You are not related to this project.")

	case errors.Is(err, policy.ErrProjectNotFound):
		RespondNotFound(ctx, "Project not found")

	case errors.Is(err, policy.ErrTargetNotFound):
		RespondNotFound(ctx, "User not found")

	case errors.Is(err, user.ErrNotFound):
		// the actor vanished between token issue and now
		RespondUnAuthorized(ctx, "unauthorized", "Unknown account")

	case errors.Is(err, policy.ErrStorageUnavailable):
		RespondError(ctx, http.StatusInternalServerError, "storage_unavailable", "Storage is unavailable, try again later.", nil)

	default:
		RespondInternal(ctx, "Could not complete the operation")
	}
}
