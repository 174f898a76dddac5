package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/projecthub-dev/projecthub/internal/config"
	"github.com/projecthub-dev/projecthub/internal/http/middlewares"
	"github.com/projecthub-dev/projecthub/internal/policy"
)

// DashboardHandler computes the stats card over the actor's visible slice,
// so two users can legitimately see different numbers.
type DashboardHandler struct {
	engine *policy.Engine
}

func NewDashboardHandler(engine *policy.Engine) *DashboardHandler {
	return &DashboardHandler{engine: engine}
}

func (h *DashboardHandler) Stats(ctx *gin.Context) {
	actorID, ok := middlewares.UserIDFromContext(ctx)
	if !ok || actorID == "" {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	stats, err := h.engine.Stats(cctx, actorID, time.Now().UTC())
	if err != nil {
		respondPolicyError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, stats)
}
