package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey  = "presence:online_users"
	presenceKeyBase = "presence:"
)

// PresenceRepository mirrors the in-process online set into redis so other
// tools can read it. The hub stays the source of truth.
type PresenceRepository interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	GetStatus(ctx context.Context, userID string) (string, error)
	OnlineAmong(ctx context.Context, userIDs []string) ([]string, error)
}

type presenceRepository struct {
	client *redis.Client
}

func NewPresenceRepository(client *redis.Client) PresenceRepository {
	return &presenceRepository{client: client}
}

// SetOnline - Key: "presence:{userID}" = online, no TTL while connected
func (r *presenceRepository) SetOnline(ctx context.Context, userID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, onlineUsersKey, userID)
		pipe.Set(ctx, presenceKeyBase+userID, "online", 0)
		return nil
	})
	return err
}

// SetOffline - Key: "presence:{userID}" = offline, TTL 1 minute to avoid flicker
func (r *presenceRepository) SetOffline(ctx context.Context, userID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, onlineUsersKey, userID)
		pipe.Set(ctx, presenceKeyBase+userID, "offline", time.Minute)
		pipe.Set(ctx, presenceKeyBase+userID+":last_seen", time.Now().UTC().Format(time.RFC3339), 24*time.Hour)
		return nil
	})
	return err
}

func (r *presenceRepository) GetStatus(ctx context.Context, userID string) (string, error) {
	status, err := r.client.Get(ctx, presenceKeyBase+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "offline", nil
	}
	return status, err
}

// OnlineAmong filters userIDs down to the ones currently online.
func (r *presenceRepository) OnlineAmong(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	members := make([]any, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}
	flags, err := r.client.SMIsMember(ctx, onlineUsersKey, members...).Result()
	if err != nil {
		return nil, err
	}
	online := make([]string, 0, len(userIDs))
	for i, ok := range flags {
		if ok {
			online = append(online, userIDs[i])
		}
	}
	return online, nil
}
