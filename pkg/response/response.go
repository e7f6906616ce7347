// Package response writes JSON bodies for the REST layer.
package response

import (
	"net/http"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/models"

	"github.com/gin-gonic/gin"
)

// Error aborts the request with the status and public message for err.
// Internal causes are recorded on the context for the access log only.
func Error(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)
	if apperror.KindOf(err) == apperror.KindInternal {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: apperror.PublicMessage(err),
		Kind:  string(apperror.KindOf(err)),
	})
}

// BadRequest reports a binding failure.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid request body",
		Kind:    string(apperror.KindValidation),
		Details: err.Error(),
	})
}

func JSON(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
