package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfSurvivesWrapping(t *testing.T) {
	base := Forbidden("Not authorized to join this community")
	wrapped := fmt.Errorf("join room: %w", base)

	assert.Equal(t, KindAuthorization, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindAuthorization))
	assert.Equal(t, "Not authorized to join this community", PublicMessage(wrapped))
}

func TestPlainErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset by peer")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := Internal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", PublicMessage(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		Unauthenticated("token is required"): http.StatusUnauthorized,
		Forbidden("admins only"):             http.StatusForbidden,
		Invalid("postId is required"):        http.StatusBadRequest,
		NotFound("post not found"):           http.StatusNotFound,
		New(KindDelivery, "send queue full"): http.StatusInternalServerError,
	}
	for err, status := range cases {
		assert.Equal(t, status, HTTPStatus(err), err.Error())
	}
	assert.False(t, Is(nil, KindInternal))
}
