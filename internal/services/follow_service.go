package services

import (
	"context"
	"log/slog"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/models"
	"civic-realtime/internal/notification"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"
)

type NewFollower struct {
	FollowerID string `json:"followerId"`
}

type FollowService struct {
	follows  repository.FollowRepository
	users    repository.UserRepository
	fanout   websocket.Fanout
	notifier *notification.Service
	log      *slog.Logger
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, fanout websocket.Fanout, notifier *notification.Service, log *slog.Logger) *FollowService {
	return &FollowService{follows: follows, users: users, fanout: fanout, notifier: notifier, log: log}
}

// Follow creates the edge. Only a new edge notifies the followed user; the
// follower's own devices always get the resulting status.
func (s *FollowService) Follow(ctx context.Context, identity auth.Identity, followeeID string) (models.FollowStatusResponse, error) {
	if err := s.checkTarget(ctx, identity, followeeID); err != nil {
		return models.FollowStatusResponse{}, err
	}
	created, err := s.follows.Follow(ctx, identity.UserID, followeeID)
	if err != nil {
		return models.FollowStatusResponse{}, err
	}

	if created {
		s.fanout.Dispatch(ctx, websocket.Event{
			Name:     websocket.EventNewFollower,
			Payload:  NewFollower{FollowerID: identity.UserID},
			Audience: websocket.ToUsers(followeeID),
		})
		if _, err := s.notifier.Notify(ctx, notification.Notice{
			RecipientID: followeeID,
			ActorID:     identity.UserID,
			Type:        notification.TypeFollow,
			EntityID:    identity.UserID,
		}); err != nil {
			s.log.Error("Failed to notify new follower", "followeeID", followeeID, "error", err)
		}
	}
	return s.status(ctx, identity.UserID, followeeID, true), nil
}

func (s *FollowService) Unfollow(ctx context.Context, identity auth.Identity, followeeID string) (models.FollowStatusResponse, error) {
	if !models.IsUUID(followeeID) {
		return models.FollowStatusResponse{}, apperror.Invalid("invalid userId")
	}
	if _, err := s.follows.Unfollow(ctx, identity.UserID, followeeID); err != nil {
		return models.FollowStatusResponse{}, err
	}
	return s.status(ctx, identity.UserID, followeeID, false), nil
}

func (s *FollowService) checkTarget(ctx context.Context, identity auth.Identity, followeeID string) error {
	if !models.IsUUID(followeeID) {
		return apperror.Invalid("invalid userId")
	}
	if followeeID == identity.UserID {
		return apperror.Invalid("cannot follow yourself")
	}
	_, err := s.users.FindByID(ctx, followeeID)
	return err
}

func (s *FollowService) status(ctx context.Context, followerID, followeeID string, following bool) models.FollowStatusResponse {
	resp := models.FollowStatusResponse{UserID: followeeID, Following: following}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     websocket.EventFollowingStatusUpdate,
		Payload:  resp,
		Audience: websocket.ToUsers(followerID),
	})
	return resp
}
