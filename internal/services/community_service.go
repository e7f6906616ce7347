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

// CommunityDecision is the payload of community:approved / community:rejected.
type CommunityDecision struct {
	CommunityID string `json:"communityId"`
	Name        string `json:"name"`
	Reason      string `json:"reason,omitempty"`
}

type MembershipRequestEvent struct {
	RequestID   string `json:"requestId"`
	CommunityID string `json:"communityId"`
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

type InvitationEvent struct {
	InvitationID string `json:"invitationId"`
	CommunityID  string `json:"communityId"`
	InviterID    string `json:"inviterId"`
	InviteeID    string `json:"inviteeId"`
	Status       string `json:"status"`
}

// CommunityService drives community approval, join requests and
// invitations. Whenever someone gains membership their live connections
// join the community room right away.
type CommunityService struct {
	communities repository.CommunityRepository
	memberships repository.MembershipRepository
	authz       *authz.Authorizer
	fanout      websocket.Fanout
	notifier    *notification.Service
	moderation  *moderation.Pipeline
	log         *slog.Logger
}

func NewCommunityService(
	communities repository.CommunityRepository,
	memberships repository.MembershipRepository,
	authorizer *authz.Authorizer,
	fanout websocket.Fanout,
	notifier *notification.Service,
	pipeline *moderation.Pipeline,
	log *slog.Logger,
) *CommunityService {
	return &CommunityService{
		communities: communities,
		memberships: memberships,
		authz:       authorizer,
		fanout:      fanout,
		notifier:    notifier,
		moderation:  pipeline,
		log:         log,
	}
}

// Create stores a pending community and asks platform admins to review it.
func (s *CommunityService) Create(ctx context.Context, identity auth.Identity, req models.CreateCommunityRequest) (*models.Community, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Invalid("name is required")
	}
	community := &models.Community{
		Name:        name,
		Description: req.Description,
		OwnerID:     identity.UserID,
		Status:      models.CommunityPending,
	}
	if err := s.communities.Create(ctx, community); err != nil {
		return nil, err
	}

	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     websocket.EventCommunityApprovalRequest,
		Payload:  community,
		Audience: websocket.ToRoomWithRole(websocket.AdminApprovalsRoom(), models.RoleAdmin),
	})
	return community, nil
}

// Review approves or rejects a pending community. Admin only.
func (s *CommunityService) Review(ctx context.Context, identity auth.Identity, communityID string, approved bool, reason string) (*models.Community, error) {
	if err := s.authz.Authorize(ctx, identity, authz.Platform(), authz.ActionAdminister); err != nil {
		return nil, err
	}
	community, err := s.findCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.Status != models.CommunityPending {
		return nil, apperror.Invalid("community already reviewed")
	}

	status, event, action, kind := models.CommunityRejected, websocket.EventCommunityRejected, moderation.ActionRejectCommunity, notification.TypeCommunityRejected
	if approved {
		status, event, action, kind = models.CommunityApproved, websocket.EventCommunityApproved, moderation.ActionApproveCommunity, notification.TypeCommunityApproved
	}
	if err := s.communities.UpdateStatus(ctx, community.ID, status); err != nil {
		return nil, err
	}
	community.Status = status

	if approved {
		s.fanout.JoinUser(community.OwnerID, websocket.CommunityRoom(community.ID))
	}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     event,
		Payload:  CommunityDecision{CommunityID: community.ID, Name: community.Name, Reason: reason},
		Audience: websocket.ToUsers(community.OwnerID),
	})
	s.notify(ctx, notification.Notice{RecipientID: community.OwnerID, ActorID: identity.UserID, Type: kind, EntityID: community.ID})
	s.moderation.RecordBestEffort(ctx, moderation.Entry{
		ActorID:  identity.UserID,
		Action:   action,
		TargetID: community.ID,
		Reason:   reason,
	})
	return community, nil
}

// RequestMembership files a join request and alerts the community's
// owners and moderators.
func (s *CommunityService) RequestMembership(ctx context.Context, identity auth.Identity, communityID string) (*models.MembershipRequest, error) {
	community, err := s.findCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if community.Status != models.CommunityApproved {
		return nil, apperror.Invalid("community is not approved")
	}
	member, err := s.communities.IsMember(ctx, identity.UserID, community.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperror.Invalid("already a member of this community")
	}

	req := &models.MembershipRequest{CommunityID: community.ID, UserID: identity.UserID}
	if err := s.memberships.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	admins, err := s.communities.AdminIDs(ctx, community.ID)
	if err != nil {
		return nil, err
	}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     websocket.EventMembershipRequestNew,
		Payload:  requestEvent(req, ""),
		Audience: websocket.ToUsers(admins...),
	})
	return req, nil
}

// DecideRequest approves or rejects a pending join request. Community
// owners, moderators and platform admins may decide.
func (s *CommunityService) DecideRequest(ctx context.Context, identity auth.Identity, requestID string, approved bool, reason string) (*models.MembershipRequest, error) {
	if !models.IsUUID(requestID) {
		return nil, apperror.Invalid("invalid requestId")
	}
	req, err := s.memberships.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, identity, authz.Community(req.CommunityID), authz.ActionModerate); err != nil {
		return nil, err
	}

	status, event, action, kind := models.RequestRejected, websocket.EventMembershipRejected, moderation.ActionRejectMember, notification.TypeMembershipRejected
	if approved {
		status, event, action, kind = models.RequestApproved, websocket.EventMembershipApproved, moderation.ActionApproveMember, notification.TypeMembershipApproved
	}
	if err := s.memberships.DecideRequest(ctx, req.ID, status); err != nil {
		return nil, err
	}
	req.Status = status

	if approved {
		if err := s.communities.AddMember(ctx, req.CommunityID, req.UserID, models.MemberRoleMember); err != nil {
			return nil, err
		}
		s.fanout.JoinUser(req.UserID, websocket.CommunityRoom(req.CommunityID))
	}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     event,
		Payload:  requestEvent(req, reason),
		Audience: websocket.ToUsers(req.UserID),
	})
	s.notify(ctx, notification.Notice{RecipientID: req.UserID, ActorID: identity.UserID, Type: kind, EntityID: req.CommunityID})
	s.moderation.RecordBestEffort(ctx, moderation.Entry{
		ActorID:     identity.UserID,
		Action:      action,
		TargetID:    req.UserID,
		CommunityID: &req.CommunityID,
		Reason:      reason,
	})
	return req, nil
}

// Invite sends an invitation on behalf of a community owner or moderator.
func (s *CommunityService) Invite(ctx context.Context, identity auth.Identity, communityID, inviteeID string) (*models.Invitation, error) {
	if !models.IsUUID(inviteeID) {
		return nil, apperror.Invalid("invalid inviteeId")
	}
	if inviteeID == identity.UserID {
		return nil, apperror.Invalid("cannot invite yourself")
	}
	community, err := s.findCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, identity, authz.Community(community.ID), authz.ActionModerate); err != nil {
		return nil, err
	}
	member, err := s.communities.IsMember(ctx, inviteeID, community.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperror.Invalid("user is already a member")
	}

	inv := &models.Invitation{CommunityID: community.ID, InviterID: identity.UserID, InviteeID: inviteeID}
	if err := s.memberships.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     websocket.EventInvitationSent,
		Payload:  invitationEvent(inv),
		Audience: websocket.ToUsers(inviteeID),
	})
	s.notify(ctx, notification.Notice{RecipientID: inviteeID, ActorID: identity.UserID, Type: notification.TypeInvitation, EntityID: community.ID})
	return inv, nil
}

// RespondInvitation lets the invitee accept or decline. Accepting creates
// the membership.
func (s *CommunityService) RespondInvitation(ctx context.Context, identity auth.Identity, invitationID string, accept bool) (*models.Invitation, error) {
	if !models.IsUUID(invitationID) {
		return nil, apperror.Invalid("invalid invitationId")
	}
	inv, err := s.memberships.FindInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != identity.UserID {
		return nil, apperror.Forbidden("Only the invitee can answer this invitation")
	}

	status, event, kind := models.InvitationDeclined, websocket.EventInvitationDeclined, notification.TypeInvitationDeclined
	if accept {
		status, event, kind = models.InvitationAccepted, websocket.EventInvitationAccepted, notification.TypeInvitationAccepted
	}
	if err := s.memberships.RespondInvitation(ctx, inv.ID, status); err != nil {
		return nil, err
	}
	inv.Status = status

	if accept {
		if err := s.communities.AddMember(ctx, inv.CommunityID, inv.InviteeID, models.MemberRoleMember); err != nil {
			return nil, err
		}
		s.fanout.JoinUser(inv.InviteeID, websocket.CommunityRoom(inv.CommunityID))
	}
	s.fanout.Dispatch(ctx, websocket.Event{
		Name:     event,
		Payload:  invitationEvent(inv),
		Audience: websocket.ToUsers(inv.InviterID),
	})
	s.notify(ctx, notification.Notice{RecipientID: inv.InviterID, ActorID: identity.UserID, Type: kind, EntityID: inv.CommunityID})
	return inv, nil
}

// RemoveMember takes a user out of a community. The user's live
// connections leave the community room before the audit entry goes out, so
// they do not receive it.
func (s *CommunityService) RemoveMember(ctx context.Context, identity auth.Identity, communityID, userID, reason string) error {
	if !models.IsUUID(userID) {
		return apperror.Invalid("invalid userId")
	}
	community, err := s.findCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, identity, authz.Community(community.ID), authz.ActionModerate); err != nil {
		return err
	}
	if userID == community.OwnerID {
		return apperror.Invalid("the owner cannot be removed")
	}
	if userID == identity.UserID {
		return apperror.Invalid("cannot remove yourself")
	}
	if err := s.communities.RemoveMember(ctx, community.ID, userID); err != nil {
		return err
	}

	s.fanout.LeaveUser(userID, websocket.CommunityRoom(community.ID))
	s.moderation.RecordBestEffort(ctx, moderation.Entry{
		ActorID:     identity.UserID,
		Action:      moderation.ActionRemoveMember,
		TargetID:    userID,
		CommunityID: &community.ID,
		Reason:      strings.TrimSpace(reason),
	})
	return nil
}

func (s *CommunityService) findCommunity(ctx context.Context, communityID string) (*models.Community, error) {
	if !models.IsUUID(communityID) {
		return nil, apperror.Invalid("invalid communityId")
	}
	return s.communities.FindByID(ctx, communityID)
}

func (s *CommunityService) notify(ctx context.Context, n notification.Notice) {
	if _, err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Error("Failed to store notification", "type", n.Type, "recipientID", n.RecipientID, "error", err)
	}
}

func requestEvent(req *models.MembershipRequest, reason string) MembershipRequestEvent {
	return MembershipRequestEvent{
		RequestID:   req.ID,
		CommunityID: req.CommunityID,
		UserID:      req.UserID,
		Status:      req.Status,
		Reason:      reason,
	}
}

func invitationEvent(inv *models.Invitation) InvitationEvent {
	return InvitationEvent{
		InvitationID: inv.ID,
		CommunityID:  inv.CommunityID,
		InviterID:    inv.InviterID,
		InviteeID:    inv.InviteeID,
		Status:       inv.Status,
	}
}
