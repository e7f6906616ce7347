package handlers

import (
	"net/http"

	"civic-realtime/internal/api/middleware"
	"civic-realtime/internal/models"
	"civic-realtime/internal/notification"
	"civic-realtime/internal/services"
	"civic-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

// Presence reports who is connected right now.
type Presence interface {
	OnlineUserIDs() []string
}

type UserHandler struct {
	follows       *services.FollowService
	notifications *notification.Service
	presence      Presence
}

func NewUserHandler(follows *services.FollowService, notifications *notification.Service, presence Presence) *UserHandler {
	return &UserHandler{follows: follows, notifications: notifications, presence: presence}
}

// Follow godoc
// @Summary Follow a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.FollowStatusResponse
// @Router /users/{id}/follow [post]
func (h *UserHandler) Follow(c *gin.Context) {
	status, err := h.follows.Follow(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Unfollow godoc
// @Summary Unfollow a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.FollowStatusResponse
// @Router /users/{id}/follow [delete]
func (h *UserHandler) Unfollow(c *gin.Context) {
	status, err := h.follows.Unfollow(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *UserHandler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"userIds": h.presence.OnlineUserIDs()})
}

// UnreadCount recomputes the badge from stored notifications.
func (h *UserHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), middleware.Identity(c).UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, models.UnreadCountResponse{Count: count})
}
