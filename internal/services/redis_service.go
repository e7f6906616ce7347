package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"civic-realtime/internal/database"

	"github.com/redis/go-redis/v9"
)

// RateLimiter decides whether one more hit on key fits in the window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RedisService struct {
	client *database.RedisClient
	log    *slog.Logger
}

func NewRedisService(client *database.RedisClient, log *slog.Logger) *RedisService {
	return &RedisService{
		client: client,
		log:    log,
	}
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit is a sliding-window limiter over a sorted set scored by
// request time in milliseconds.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixMilli()

	pipe := r.client.GetClient().Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))

	// Count current entries
	card := pipe.ZCard(ctx, key)

	// Add current request
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: now.UnixNano()})

	// Set expiration
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("Rate limit check failed", "key", key, "error", err)
		return false, err
	}

	return card.Val() < int64(limit), nil
}

func (r *RedisService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	return r.CheckRateLimit(ctx, key, limit, window)
}

// =============================================================================
// Keys
// =============================================================================

func SocketActionKey(userID string) string { return fmt.Sprintf("rate_limit:socket:%s", userID) }
func APIKey(subject string) string         { return fmt.Sprintf("rate_limit:api:%s", subject) }
func ConnectionKey(subject string) string  { return fmt.Sprintf("rate_limit:ws_connect:%s", subject) }
