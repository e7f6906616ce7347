package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"civic-realtime/internal/models"
	"civic-realtime/internal/services"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware throttles requests through a RateLimiter. A nil
// limiter disables throttling; a failing one lets requests through.
type RateLimitMiddleware struct {
	limiter services.RateLimiter
	log     *slog.Logger
}

func NewRateLimitMiddleware(limiter services.RateLimiter, log *slog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		log:     log,
	}
}

// RateLimit limits authenticated requests per user and endpoint.
func (rm *RateLimitMiddleware) RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := Identity(c).UserID
		if subject == "" {
			subject = c.ClientIP()
		}
		rm.check(c, services.APIKey(subject+":"+c.FullPath()), requests, window,
			fmt.Sprintf("Too many requests. Limit: %d per %v", requests, window))
	}
}

// WebSocketRateLimit limits new socket connections per user.
func (rm *RateLimitMiddleware) WebSocketRateLimit(connections int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		rm.check(c, services.ConnectionKey(Identity(c).UserID), connections, window,
			"WebSocket connection rate limit exceeded")
	}
}

func (rm *RateLimitMiddleware) check(c *gin.Context, key string, limit int, window time.Duration, message string) {
	if rm.limiter == nil {
		c.Next()
		return
	}

	allowed, err := rm.limiter.Allow(c.Request.Context(), key, limit, window)
	if err != nil {
		rm.log.Warn("Rate limit check failed", "key", key, "error", err)
		c.Next()
		return
	}
	if !allowed {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "Rate limit exceeded",
			Details: message,
		})
		return
	}

	c.Next()
}
