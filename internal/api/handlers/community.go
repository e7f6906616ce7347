package handlers

import (
	"net/http"

	"civic-realtime/internal/api/middleware"
	"civic-realtime/internal/models"
	"civic-realtime/internal/services"
	"civic-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	communities *services.CommunityService
}

func NewCommunityHandler(communities *services.CommunityService) *CommunityHandler {
	return &CommunityHandler{communities: communities}
}

// CreateCommunity godoc
// @Summary Propose a community
// @Description The community starts pending and is announced to platform admins for review
// @Tags communities
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateCommunityRequest true "Community data"
// @Success 201 {object} models.Community
// @Router /communities [post]
func (h *CommunityHandler) CreateCommunity(c *gin.Context) {
	var req models.CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	community, err := h.communities.Create(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, community)
}

// ReviewCommunity godoc
// @Summary Approve or reject a pending community
// @Tags communities
// @Security BearerAuth
// @Param id path string true "Community ID"
// @Param request body models.ReviewCommunityRequest true "Decision"
// @Success 200 {object} models.Community
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Router /communities/{id}/review [post]
func (h *CommunityHandler) ReviewCommunity(c *gin.Context) {
	var req models.ReviewCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	community, err := h.communities.Review(c.Request.Context(), middleware.Identity(c), c.Param("id"), *req.Approved, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) RequestMembership(c *gin.Context) {
	req, err := h.communities.RequestMembership(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

func (h *CommunityHandler) DecideRequest(c *gin.Context) {
	var body models.DecisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}
	req, err := h.communities.DecideRequest(c.Request.Context(), middleware.Identity(c), c.Param("id"), *body.Approved, body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (h *CommunityHandler) Invite(c *gin.Context) {
	var body models.InviteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}
	inv, err := h.communities.Invite(c.Request.Context(), middleware.Identity(c), c.Param("id"), body.InviteeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *CommunityHandler) RespondInvitation(c *gin.Context) {
	var body models.InvitationResponseRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err)
		return
	}
	inv, err := h.communities.RespondInvitation(c.Request.Context(), middleware.Identity(c), c.Param("id"), *body.Accept)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

// RemoveMember godoc
// @Summary Remove a community member
// @Description Owners, moderators and platform admins may remove members; the owner cannot be removed
// @Tags communities
// @Security BearerAuth
// @Param id path string true "Community ID"
// @Param userId path string true "User ID"
// @Param reason query string false "Reason recorded in the moderation log"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /communities/{id}/members/{userId} [delete]
func (h *CommunityHandler) RemoveMember(c *gin.Context) {
	err := h.communities.RemoveMember(c.Request.Context(), middleware.Identity(c), c.Param("id"), c.Param("userId"), c.Query("reason"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
