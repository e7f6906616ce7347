// Package notification persists per-user notifications and pushes them to
// the recipient's personal room when the recipient is online.
package notification

import (
	"context"
	"log/slog"
	"time"

	"civic-realtime/internal/models"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"

	"github.com/samber/lo"
)

type Type string

const (
	TypeCommentPost        Type = "comment_post"
	TypeReplyComment       Type = "reply_comment"
	TypeLikeComment        Type = "like_comment"
	TypeFollow             Type = "follow"
	TypeMembershipApproved Type = "membership_approved"
	TypeMembershipRejected Type = "membership_rejected"
	TypeInvitation         Type = "invitation"
	TypeInvitationAccepted Type = "invitation_accepted"
	TypeInvitationDeclined Type = "invitation_declined"
	TypeCommunityApproved  Type = "community_approved"
	TypeCommunityRejected  Type = "community_rejected"
	TypeModerationLog      Type = "moderation_log"
)

// Notice describes one notification before it is stored.
type Notice struct {
	RecipientID string
	ActorID     string
	Type        Type
	EntityID    string
}

// Payload is the newNotification event body.
type Payload struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	ActorID   string    `json:"actorId"`
	EntityID  string    `json:"entityId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	repo   repository.NotificationRepository
	fanout websocket.Fanout
	log    *slog.Logger
}

func NewService(repo repository.NotificationRepository, fanout websocket.Fanout, log *slog.Logger) *Service {
	return &Service{repo: repo, fanout: fanout, log: log}
}

// Record stores n without pushing anything. Acting on your own content
// produces no notification and returns nil.
func (s *Service) Record(ctx context.Context, n Notice) (*models.Notification, error) {
	if n.RecipientID == "" || n.RecipientID == n.ActorID {
		return nil, nil
	}
	row := &models.Notification{
		RecipientID: n.RecipientID,
		ActorID:     n.ActorID,
		Type:        string(n.Type),
		EntityID:    n.EntityID,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Notify stores n and, when the recipient is online, sends newNotification
// followed by a badge update. Offline recipients get no delivery attempt;
// their badge is recomputed on the next fetch.
func (s *Service) Notify(ctx context.Context, n Notice) (*models.Notification, error) {
	row, err := s.Record(ctx, n)
	if err != nil || row == nil {
		return row, err
	}
	if !s.fanout.IsOnline(n.RecipientID) {
		return row, nil
	}

	s.fanout.Dispatch(ctx, websocket.Event{
		Name: websocket.EventNewNotification,
		Payload: Payload{
			ID:        row.ID,
			Type:      n.Type,
			ActorID:   row.ActorID,
			EntityID:  row.EntityID,
			CreatedAt: row.CreatedAt,
		},
		Audience: websocket.ToUsers(n.RecipientID),
	})
	s.PushBadges(ctx, n.RecipientID)
	return row, nil
}

// PushBadges sends notification:count:update to each distinct online user
// and returns how many pushes were made.
func (s *Service) PushBadges(ctx context.Context, userIDs ...string) int {
	pushed := 0
	for _, id := range lo.Uniq(userIDs) {
		if !s.fanout.IsOnline(id) {
			continue
		}
		count, err := s.repo.CountUnread(ctx, id)
		if err != nil {
			s.log.Error("Failed to count unread notifications", "userID", id, "error", err)
			continue
		}
		s.fanout.Dispatch(ctx, websocket.Event{
			Name:     websocket.EventNotificationCount,
			Payload:  websocket.CountData{Count: count},
			Audience: websocket.ToUsers(id),
		})
		pushed++
	}
	return pushed
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
