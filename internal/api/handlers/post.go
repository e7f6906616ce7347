package handlers

import (
	"net/http"

	"civic-realtime/internal/api/middleware"
	"civic-realtime/internal/models"
	"civic-realtime/internal/services"
	"civic-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts *services.PostService
}

func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// CreatePost godoc
// @Summary Create a post
// @Description Create a post in a community or on the global feed, optionally with a poll
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreatePostRequest true "Post data"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	post, err := h.posts.Create(c.Request.Context(), middleware.Identity(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary Edit a post
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body models.UpdatePostRequest true "New title and content"
// @Success 200 {object} models.Post
// @Router /posts/{id} [put]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	var req models.UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	post, err := h.posts.Update(c.Request.Context(), middleware.Identity(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Description Authors may delete their own posts; community moderators and platform admins may delete any post in their scope
// @Tags posts
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 204
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), middleware.Identity(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PostHandler) VotePoll(c *gin.Context) {
	var req models.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	options, err := h.posts.Vote(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.OptionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"postId": c.Param("id"), "options": options})
}

func (h *PostHandler) ReportPost(c *gin.Context) {
	var req models.ReportPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	if err := h.posts.Report(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
