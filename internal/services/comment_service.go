package services

import (
	"context"
	"log/slog"
	"strings"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/authz"
	"civic-realtime/internal/models"
	"civic-realtime/internal/moderation"
	"civic-realtime/internal/notification"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"
)

type CommentLikeUpdate struct {
	CommentID string `json:"commentId"`
	Likes     int64  `json:"likes"`
}

type CommentDeleted struct {
	CommentID string  `json:"commentId"`
	ParentID  *string `json:"parentId"`
}

type CommentService struct {
	comments   repository.CommentRepository
	posts      repository.PostRepository
	authz      *authz.Authorizer
	fanout     websocket.Fanout
	notifier   *notification.Service
	moderation *moderation.Pipeline
	log        *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	authorizer *authz.Authorizer,
	fanout websocket.Fanout,
	notifier *notification.Service,
	pipeline *moderation.Pipeline,
	log *slog.Logger,
) *CommentService {
	return &CommentService{
		comments:   comments,
		posts:      posts,
		authz:      authorizer,
		fanout:     fanout,
		notifier:   notifier,
		moderation: pipeline,
		log:        log,
	}
}

// Create adds a comment or reply, broadcasts newComment to the post room
// and notifies the post author, or the parent comment's author for replies.
func (s *CommentService) Create(ctx context.Context, identity auth.Identity, postID, content string, parentID *string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperror.Invalid("content is required")
	}
	post, err := s.visiblePost(ctx, identity, postID)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if parentID != nil && *parentID != "" {
		if !models.IsUUID(*parentID) {
			return nil, apperror.Invalid("invalid parentId")
		}
		if parent, err = s.comments.FindByID(ctx, *parentID); err != nil {
			return nil, err
		}
		if parent.PostID != post.ID {
			return nil, apperror.Invalid("parent comment belongs to another post")
		}
	}

	comment := &models.Comment{PostID: post.ID, AuthorID: identity.UserID, Content: content}
	if parent != nil {
		comment.ParentID = &parent.ID
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     websocket.EventNewComment,
		Payload:  comment,
		Audience: websocket.ToRoom(websocket.PostRoom(post.ID)),
	})

	notice := notification.Notice{RecipientID: post.AuthorID, ActorID: identity.UserID, Type: notification.TypeCommentPost, EntityID: post.ID}
	if parent != nil {
		notice = notification.Notice{RecipientID: parent.AuthorID, ActorID: identity.UserID, Type: notification.TypeReplyComment, EntityID: comment.ID}
	}
	if _, err := s.notifier.Notify(ctx, notice); err != nil {
		s.log.Error("Failed to notify about comment", "commentID", comment.ID, "recipientID", notice.RecipientID, "error", err)
	}
	return comment, nil
}

// ToggleLike flips the caller's like. Only a new like notifies the author.
func (s *CommentService) ToggleLike(ctx context.Context, identity auth.Identity, commentID string) (CommentLikeUpdate, error) {
	comment, err := s.find(ctx, commentID)
	if err != nil {
		return CommentLikeUpdate{}, err
	}
	if _, err := s.visiblePost(ctx, identity, comment.PostID); err != nil {
		return CommentLikeUpdate{}, err
	}

	likes, liked, err := s.comments.ToggleLike(ctx, comment.ID, identity.UserID)
	if err != nil {
		return CommentLikeUpdate{}, err
	}
	update := CommentLikeUpdate{CommentID: comment.ID, Likes: likes}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     websocket.EventCommentLikeUpdate,
		Payload:  update,
		Audience: websocket.ToRoom(websocket.PostRoom(comment.PostID)),
	})

	if liked {
		if _, err := s.notifier.Notify(ctx, notification.Notice{
			RecipientID: comment.AuthorID,
			ActorID:     identity.UserID,
			Type:        notification.TypeLikeComment,
			EntityID:    comment.ID,
		}); err != nil {
			s.log.Error("Failed to notify about comment like", "commentID", comment.ID, "error", err)
		}
	}
	return update, nil
}

// Delete removes a comment and its replies. Anyone other than the author
// must be able to moderate the post's community; those removals are
// audited as delete_comment.
func (s *CommentService) Delete(ctx context.Context, identity auth.Identity, commentID string) error {
	comment, err := s.find(ctx, commentID)
	if err != nil {
		return err
	}
	post, err := s.posts.FindByID(ctx, comment.PostID)
	if err != nil {
		return err
	}

	byAuthor := comment.AuthorID == identity.UserID
	if !byAuthor {
		if err := s.authz.Authorize(ctx, identity, authz.Scope(post.CommunityID), authz.ActionModerate); err != nil {
			return err
		}
	}
	if err := s.comments.Delete(ctx, comment.ID); err != nil {
		return err
	}

	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     websocket.EventCommentDeleted,
		Payload:  CommentDeleted{CommentID: comment.ID, ParentID: comment.ParentID},
		Audience: websocket.ToRoom(websocket.PostRoom(comment.PostID)),
	})
	if !byAuthor {
		s.moderation.RecordBestEffort(ctx, moderation.Entry{
			ActorID:     identity.UserID,
			Action:      moderation.ActionDeleteComment,
			TargetID:    comment.ID,
			CommunityID: post.CommunityID,
			Reason:      "comment removed by moderator",
		})
	}
	return nil
}

func (s *CommentService) find(ctx context.Context, commentID string) (*models.Comment, error) {
	if !models.IsUUID(commentID) {
		return nil, apperror.Invalid("invalid commentId")
	}
	return s.comments.FindByID(ctx, commentID)
}

// visiblePost loads a post the caller may interact with. Community posts
// are limited to that community's members.
func (s *CommentService) visiblePost(ctx context.Context, identity auth.Identity, postID string) (*models.Post, error) {
	if !models.IsUUID(postID) {
		return nil, apperror.Invalid("invalid postId")
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.CommunityID != nil {
		if err := s.authz.Authorize(ctx, identity, authz.Community(*post.CommunityID), authz.ActionJoin); err != nil {
			return nil, err
		}
	}
	return post, nil
}
