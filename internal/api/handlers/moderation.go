package handlers

import (
	"net/http"
	"strconv"

	"civic-realtime/internal/api/middleware"
	"civic-realtime/internal/apperror"
	"civic-realtime/internal/authz"
	"civic-realtime/internal/models"
	"civic-realtime/internal/moderation"
	"civic-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

type ModerationHandler struct {
	pipeline *moderation.Pipeline
	authz    *authz.Authorizer
}

func NewModerationHandler(pipeline *moderation.Pipeline, authorizer *authz.Authorizer) *ModerationHandler {
	return &ModerationHandler{pipeline: pipeline, authz: authorizer}
}

// CreateLog godoc
// @Summary Record a moderation action
// @Description Community moderators may log actions in their community; platform-level entries need an admin
// @Tags moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateModerationLogRequest true "Entry"
// @Success 201 {object} models.ModerationLog
// @Router /moderation/logs [post]
func (h *ModerationHandler) CreateLog(c *gin.Context) {
	var req models.CreateModerationLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	if req.CommunityID != nil && *req.CommunityID == "" {
		req.CommunityID = nil
	}

	identity := middleware.Identity(c)
	if err := h.authz.Authorize(c.Request.Context(), identity, authz.Scope(req.CommunityID), authz.ActionModerate); err != nil {
		response.Error(c, err)
		return
	}

	entry, err := h.pipeline.Record(c.Request.Context(), moderation.Entry{
		ActorID:     identity.UserID,
		Action:      moderation.Action(req.Action),
		TargetID:    req.TargetID,
		CommunityID: req.CommunityID,
		Reason:      req.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// ListLogs godoc
// @Summary List moderation logs
// @Description Newest first. Without communityId, lists platform-level entries (admins only).
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param communityId query string false "Community ID"
// @Param limit query int false "Page size"
// @Success 200 {array} models.ModerationLog
// @Router /moderation/logs [get]
func (h *ModerationHandler) ListLogs(c *gin.Context) {
	var communityID *string
	if id := c.Query("communityId"); id != "" {
		communityID = &id
	}

	limit := defaultLogLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.Error(c, apperror.Invalid("limit must be a positive integer"))
			return
		}
		limit = min(n, maxLogLimit)
	}

	if err := h.authz.Authorize(c.Request.Context(), middleware.Identity(c), authz.Scope(communityID), authz.ActionModerate); err != nil {
		response.Error(c, err)
		return
	}
	logs, err := h.pipeline.List(c.Request.Context(), communityID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
