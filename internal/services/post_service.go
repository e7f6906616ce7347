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

	"github.com/samber/lo"
)

// PostDeleted is the postDeleted payload.
type PostDeleted struct {
	PostID      string  `json:"postId"`
	CommunityID *string `json:"communityId"`
}

type PollVoteUpdated struct {
	PostID  string              `json:"postId"`
	Options []models.PollOption `json:"options"`
}

type PostReported struct {
	PostID      string  `json:"postId"`
	CommunityID *string `json:"communityId"`
	ReporterID  string  `json:"reporterId"`
	Reason      string  `json:"reason"`
}

type PostService struct {
	posts       repository.PostRepository
	communities repository.CommunityRepository
	authz       *authz.Authorizer
	fanout      websocket.Fanout
	badges      *notification.Service
	moderation  *moderation.Pipeline
	log         *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	communities repository.CommunityRepository,
	authorizer *authz.Authorizer,
	fanout websocket.Fanout,
	badges *notification.Service,
	pipeline *moderation.Pipeline,
	log *slog.Logger,
) *PostService {
	return &PostService{
		posts:       posts,
		communities: communities,
		authz:       authorizer,
		fanout:      fanout,
		badges:      badges,
		moderation:  pipeline,
		log:         log,
	}
}

// Create stores a post and broadcasts newPost to its feed room. Community
// posts need an approved community the author belongs to.
func (s *PostService) Create(ctx context.Context, identity auth.Identity, req models.CreatePostRequest) (*models.Post, error) {
	if req.CommunityID != nil && *req.CommunityID == "" {
		req.CommunityID = nil
	}
	if req.CommunityID != nil {
		if err := s.requireApprovedMember(ctx, identity, *req.CommunityID); err != nil {
			return nil, err
		}
	}

	post := &models.Post{
		AuthorID:    identity.UserID,
		CommunityID: req.CommunityID,
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
	}
	for _, label := range lo.Uniq(req.PollOptions) {
		post.PollOptions = append(post.PollOptions, models.PollOption{Label: label})
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}

	s.publish(ctx, websocket.EventNewPost, post, post.CommunityID, identity.UserID)
	return post, nil
}

func (s *PostService) Update(ctx context.Context, identity auth.Identity, postID string, req models.UpdatePostRequest) (*models.Post, error) {
	post, err := s.find(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != identity.UserID {
		return nil, apperror.Forbidden("Only the author can edit this post")
	}
	if post.CommunityID != nil {
		if err := s.authz.Authorize(ctx, identity, authz.Community(*post.CommunityID), authz.ActionJoin); err != nil {
			return nil, err
		}
	}
	if err := s.posts.Update(ctx, postID, strings.TrimSpace(req.Title), req.Content); err != nil {
		return nil, err
	}
	post.Title, post.Content = strings.TrimSpace(req.Title), req.Content

	s.publish(ctx, websocket.EventPostUpdated, post, post.CommunityID, identity.UserID)
	return post, nil
}

// Delete is allowed for the author and for anyone who may moderate the
// post's scope. Removal by someone else is audited as delete_post.
func (s *PostService) Delete(ctx context.Context, identity auth.Identity, postID string) error {
	post, err := s.find(ctx, postID)
	if err != nil {
		return err
	}
	byAuthor := post.AuthorID == identity.UserID
	if !byAuthor {
		if err := s.authz.Authorize(ctx, identity, authz.Scope(post.CommunityID), authz.ActionModerate); err != nil {
			return err
		}
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}

	s.publish(ctx, websocket.EventPostDeleted, PostDeleted{PostID: post.ID, CommunityID: post.CommunityID}, post.CommunityID, identity.UserID)
	if !byAuthor {
		s.moderation.RecordBestEffort(ctx, moderation.Entry{
			ActorID:     identity.UserID,
			Action:      moderation.ActionDeletePost,
			TargetID:    post.ID,
			CommunityID: post.CommunityID,
			Reason:      "post removed by moderator",
		})
	}
	return nil
}

// Readable loads a post the caller may see. Community posts are limited to
// that community's members.
func (s *PostService) Readable(ctx context.Context, identity auth.Identity, postID string) (*models.Post, error) {
	post, err := s.find(ctx, postID)
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

func (s *PostService) Vote(ctx context.Context, identity auth.Identity, postID, optionID string) ([]models.PollOption, error) {
	post, err := s.Readable(ctx, identity, postID)
	if err != nil {
		return nil, err
	}
	if len(post.PollOptions) == 0 {
		return nil, apperror.Invalid("post has no poll")
	}
	options, err := s.posts.Vote(ctx, postID, identity.UserID, optionID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, websocket.EventPollVoteUpdated, PollVoteUpdated{PostID: postID, Options: options}, post.CommunityID, identity.UserID)
	return options, nil
}

// Report alerts whoever moderates the post's scope and writes a report_post
// audit entry. Community reports reach the owners and moderators directly;
// global ones go to admins watching the dashboard.
func (s *PostService) Report(ctx context.Context, identity auth.Identity, postID, reason string) error {
	post, err := s.Readable(ctx, identity, postID)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperror.Invalid("reason is required")
	}

	audience := websocket.ToRoomWithRole(websocket.AdminDashboardRoom(), models.RoleAdmin)
	if post.CommunityID != nil {
		admins, err := s.communities.AdminIDs(ctx, *post.CommunityID)
		if err != nil {
			return err
		}
		audience = websocket.ToUsers(admins...)
	}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name: websocket.EventPostReported,
		Payload: PostReported{
			PostID:      post.ID,
			CommunityID: post.CommunityID,
			ReporterID:  identity.UserID,
			Reason:      reason,
		},
		Audience: audience,
	})

	s.moderation.RecordBestEffort(ctx, moderation.Entry{
		ActorID:     identity.UserID,
		Action:      moderation.ActionReportPost,
		TargetID:    post.ID,
		CommunityID: post.CommunityID,
		Reason:      reason,
	})
	return nil
}

func (s *PostService) find(ctx context.Context, postID string) (*models.Post, error) {
	if !models.IsUUID(postID) {
		return nil, apperror.Invalid("invalid postId")
	}
	return s.posts.FindByID(ctx, postID)
}

func (s *PostService) requireApprovedMember(ctx context.Context, identity auth.Identity, communityID string) error {
	if err := s.authz.Authorize(ctx, identity, authz.Community(communityID), authz.ActionJoin); err != nil {
		return err
	}
	community, err := s.communities.FindByID(ctx, communityID)
	if err != nil {
		return err
	}
	if community.Status != models.CommunityApproved {
		return apperror.Invalid("community is not approved")
	}
	return nil
}

// publish sends a content event to exactly one feed room, then a badge
// update to each online community member other than the actor.
func (s *PostService) publish(ctx context.Context, name websocket.EventName, payload any, communityID *string, actorID string) {
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     name,
		Payload:  payload,
		Audience: websocket.ToRoom(websocket.FeedRoom(communityID)),
	})
	if communityID == nil {
		return
	}

	members, err := s.communities.MemberIDs(ctx, *communityID)
	if err != nil {
		s.log.Error("Failed to load community members for badge push", "communityID", *communityID, "error", err)
		return
	}
	s.badges.PushBadges(ctx, lo.Without(members, actorID)...)
}
