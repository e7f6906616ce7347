package services

import (
	"log/slog"

	"civic-realtime/internal/authz"
	"civic-realtime/internal/moderation"
	"civic-realtime/internal/notification"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"

	"gorm.io/gorm"
)

// Services is every business operation that ends in a fan-out, wired
// against one database and one hub. Both transports share it.
type Services struct {
	Authz         *authz.Authorizer
	Notifications *notification.Service
	Moderation    *moderation.Pipeline
	Posts         *PostService
	Comments      *CommentService
	Messages      *MessageService
	Communities   *CommunityService
	Follows       *FollowService
}

func New(db *gorm.DB, fanout websocket.Fanout, log *slog.Logger) *Services {
	// Initialize repositories
	resolver := repository.NewResolver(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	followRepo := repository.NewFollowRepository(db)

	// Shared pipelines
	authorizer := authz.NewAuthorizer(resolver)
	notifications := notification.NewService(repository.NewNotificationRepository(db), fanout, log)
	pipeline := moderation.NewPipeline(
		repository.NewModerationLogRepository(db),
		moderation.Directory{Communities: resolver.Communities, Users: resolver.Users},
		notifications,
		fanout,
		log,
	)

	return &Services{
		Authz:         authorizer,
		Notifications: notifications,
		Moderation:    pipeline,
		Posts:         NewPostService(postRepo, resolver.Communities, authorizer, fanout, notifications, pipeline, log),
		Comments:      NewCommentService(commentRepo, postRepo, authorizer, fanout, notifications, pipeline, log),
		Messages:      NewMessageService(resolver.Conversations, authorizer, fanout),
		Communities:   NewCommunityService(resolver.Communities, membershipRepo, authorizer, fanout, notifications, pipeline, log),
		Follows:       NewFollowService(followRepo, resolver.Users, fanout, notifications, log),
	}
}
