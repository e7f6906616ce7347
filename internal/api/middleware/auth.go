package middleware

import (
	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/pkg/response"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

type AuthMiddleware struct {
	verifier *auth.TokenVerifier
}

func NewAuthMiddleware(verifier *auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

// RequireAuth verifies the bearer credential and stores the identity on the
// context. The websocket route uses it too, so a bad token is rejected with
// 401 before any upgrade.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.TokenFromRequest(c.Request)
		if raw == "" {
			response.Error(c, apperror.Unauthenticated("authorization token is required"))
			return
		}

		identity, err := am.verifier.Verify(raw)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// Identity returns the identity stored by RequireAuth.
func Identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(auth.Identity); ok {
			return identity
		}
	}
	return auth.Identity{}
}
