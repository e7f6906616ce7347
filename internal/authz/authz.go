// Package authz holds the permission rules shared by the REST handlers and
// the socket gateway. Every check reads committed state through Resolver;
// nothing is cached from handshake time.
package authz

import (
	"context"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/models"

	"github.com/samber/lo"
)

// Resolver is the persistence boundary the rules are evaluated against.
type Resolver interface {
	ParticipantsOf(ctx context.Context, conversationType, conversationID string) ([]string, error)
	IsMember(ctx context.Context, userID, communityID string) (bool, error)
	IsCommunityAdmin(ctx context.Context, userID, communityID string) (bool, error)
	RoleOf(ctx context.Context, userID string) (string, error)
}

type ResourceKind string

const (
	ResourceConversation ResourceKind = "conversation"
	ResourceCommunity    ResourceKind = "community"
	ResourcePlatform     ResourceKind = "platform"
)

// Resource names the thing being acted on. ConversationType narrows a
// conversation lookup and may be empty.
type Resource struct {
	Kind             ResourceKind
	ID               string
	ConversationType string
}

// Conversation, Community and Platform build the resources callers pass
// to Authorize.
func Conversation(conversationType, conversationID string) Resource {
	return Resource{Kind: ResourceConversation, ID: conversationID, ConversationType: conversationType}
}

func Community(communityID string) Resource {
	return Resource{Kind: ResourceCommunity, ID: communityID}
}

func Platform() Resource {
	return Resource{Kind: ResourcePlatform}
}

// Scope is the community when communityID is set, else the platform.
func Scope(communityID *string) Resource {
	if communityID == nil {
		return Platform()
	}
	return Community(*communityID)
}

type Action string

const (
	ActionParticipate Action = "participate"
	ActionJoin        Action = "join"
	ActionModerate    Action = "moderate"
	ActionAdminister  Action = "administer"
)

const (
	MsgNotParticipant = "Not a participant of this conversation"
	MsgJoinCommunity  = "Not authorized to join this community"
	MsgModerate       = "Not authorized to moderate this community"
	MsgAdminOnly      = "Admin access required"
)

type Authorizer struct {
	resolver Resolver
}

func NewAuthorizer(resolver Resolver) *Authorizer {
	return &Authorizer{resolver: resolver}
}

// Authorize is the entry point for every permission check made by the REST
// handlers, the socket gateway and the services. It returns nil when
// identity may perform action on res, otherwise an authorization,
// validation or not-found error.
func (a *Authorizer) Authorize(ctx context.Context, identity auth.Identity, res Resource, action Action) error {
	switch {
	case res.Kind == ResourceConversation && action == ActionParticipate:
		return a.CanParticipate(ctx, identity, res.ConversationType, res.ID)
	case res.Kind == ResourceCommunity && action == ActionJoin:
		return a.CanJoinCommunity(ctx, identity, res.ID)
	case res.Kind == ResourceCommunity && action == ActionModerate:
		return a.CanModerate(ctx, identity, &res.ID)
	case res.Kind == ResourcePlatform && action == ActionModerate:
		return a.CanModerate(ctx, identity, nil)
	case res.Kind == ResourcePlatform && action == ActionAdminister:
		return a.RequireAdmin(ctx, identity)
	default:
		return apperror.Invalidf("unsupported action %q on %q", action, res.Kind)
	}
}

func (a *Authorizer) CanParticipate(ctx context.Context, identity auth.Identity, conversationType, conversationID string) error {
	if !models.IsUUID(conversationID) {
		return apperror.Invalid("invalid conversationId")
	}
	participants, err := a.resolver.ParticipantsOf(ctx, conversationType, conversationID)
	if err != nil {
		return err
	}
	if !lo.Contains(participants, identity.UserID) {
		return apperror.Forbidden(MsgNotParticipant)
	}
	return nil
}

// CanJoinCommunity allows members, owners and moderators.
func (a *Authorizer) CanJoinCommunity(ctx context.Context, identity auth.Identity, communityID string) error {
	if !models.IsUUID(communityID) {
		return apperror.Invalid("invalid communityId")
	}
	member, err := a.resolver.IsMember(ctx, identity.UserID, communityID)
	if err != nil {
		return err
	}
	if member {
		return nil
	}
	admin, err := a.resolver.IsCommunityAdmin(ctx, identity.UserID, communityID)
	if err != nil {
		return err
	}
	if !admin {
		return apperror.Forbidden(MsgJoinCommunity)
	}
	return nil
}

// CanModerate allows community owners and moderators. Platform admins may
// moderate anything; a nil communityID means a platform-level action and
// requires admin.
func (a *Authorizer) CanModerate(ctx context.Context, identity auth.Identity, communityID *string) error {
	if a.isAdmin(ctx, identity) {
		return nil
	}
	if communityID == nil {
		return apperror.Forbidden(MsgAdminOnly)
	}
	if !models.IsUUID(*communityID) {
		return apperror.Invalid("invalid communityId")
	}
	ok, err := a.resolver.IsCommunityAdmin(ctx, identity.UserID, *communityID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden(MsgModerate)
	}
	return nil
}

func (a *Authorizer) RequireAdmin(ctx context.Context, identity auth.Identity) error {
	if !a.isAdmin(ctx, identity) {
		return apperror.Forbidden(MsgAdminOnly)
	}
	return nil
}

// isAdmin needs both the token and the stored account to say admin, so a
// demoted user loses access before the token expires.
func (a *Authorizer) isAdmin(ctx context.Context, identity auth.Identity) bool {
	if !identity.IsAdmin() {
		return false
	}
	role, err := a.resolver.RoleOf(ctx, identity.UserID)
	return err == nil && role == models.RoleAdmin
}
