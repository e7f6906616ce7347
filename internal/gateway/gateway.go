// Package gateway turns inbound socket events into authorized room changes
// and service calls. It holds no state of its own; every decision reads
// committed state through the shared services.
package gateway

import (
	"context"
	"log/slog"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/authz"
	"civic-realtime/internal/services"
	"civic-realtime/internal/websocket"
)

// Connections is the part of the hub the gateway drives for the calling
// connection.
type Connections interface {
	JoinConnection(connID string, room websocket.Room) (bool, error)
	LeaveConnection(connID string, room websocket.Room) (bool, error)
}

type handlerFunc func(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error

type Gateway struct {
	conns    Connections
	svc      *services.Services
	limiter  services.RateLimiter
	limit    int
	window   time.Duration
	log      *slog.Logger
	handlers map[websocket.EventName]handlerFunc
}

func New(conns Connections, svc *services.Services, log *slog.Logger) *Gateway {
	g := &Gateway{conns: conns, svc: svc, log: log}
	g.handlers = map[websocket.EventName]handlerFunc{
		websocket.EventJoinRoom:      g.joinConversation,
		websocket.EventLeaveRoom:     g.leaveConversation,
		websocket.EventSendMessage:   g.sendMessage,
		websocket.EventEditMessage:   g.editMessage,
		websocket.EventDeleteMessage: g.deleteMessage,

		websocket.EventJoinGlobalFeedRoom:  g.joinFixed(websocket.GlobalFeedRoom(), false),
		websocket.EventLeaveGlobalFeedRoom: g.leaveFixed(websocket.GlobalFeedRoom()),

		websocket.EventJoinCommunityFeedRoom:  g.joinCommunity,
		websocket.EventLeaveCommunityFeedRoom: g.leaveCommunity,
		websocket.EventJoinCommunityRoom:      g.joinCommunity,
		websocket.EventLeaveCommunityRoom:     g.leaveCommunity,

		websocket.EventJoinPostRoom:  g.joinPost,
		websocket.EventLeavePostRoom: g.leavePost,

		websocket.EventCreateComment:     g.createComment,
		websocket.EventToggleLikeComment: g.toggleLike,
		websocket.EventDeleteComment:     g.deleteComment,

		websocket.EventJoinAdminApprovalRoom:   g.joinFixed(websocket.AdminApprovalsRoom(), true),
		websocket.EventLeaveAdminApprovalRoom:  g.leaveFixed(websocket.AdminApprovalsRoom()),
		websocket.EventJoinAdminDashboardRoom:  g.joinFixed(websocket.AdminDashboardRoom(), true),
		websocket.EventLeaveAdminDashboardRoom: g.leaveFixed(websocket.AdminDashboardRoom()),
	}
	return g
}

// WithRateLimit caps inbound events per user. A limiter failure lets the
// event through.
func (g *Gateway) WithRateLimit(limiter services.RateLimiter, limit int, window time.Duration) *Gateway {
	g.limiter, g.limit, g.window = limiter, limit, window
	return g
}

func (g *Gateway) HandleInbound(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	handle, ok := g.handlers[msg.Event]
	if !ok {
		return apperror.Invalidf("unsupported event %q", msg.Event)
	}
	if err := g.throttle(ctx, cc); err != nil {
		return err
	}
	return handle(ctx, cc, msg)
}

func (g *Gateway) throttle(ctx context.Context, cc websocket.ConnContext) error {
	if g.limiter == nil {
		return nil
	}
	ok, err := g.limiter.Allow(ctx, services.SocketActionKey(cc.UserID), g.limit, g.window)
	if err != nil {
		g.log.Warn("Socket rate limiter unavailable", "userID", cc.UserID, "error", err)
		return nil
	}
	if !ok {
		return apperror.Invalid("Too many requests, slow down")
	}
	return nil
}

// =============================================================================
// Conversations
// =============================================================================

func (g *Gateway) joinConversation(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req conversationRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	if err := g.svc.Authz.Authorize(ctx, cc.Identity(), authz.Conversation(req.ConversationType, req.ConversationID), authz.ActionParticipate); err != nil {
		return err
	}
	return g.join(cc, websocket.ConversationRoom(req.ConversationID))
}

func (g *Gateway) leaveConversation(_ context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req leaveConversation
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	return g.leave(cc, websocket.ConversationRoom(req.ConversationID))
}

func (g *Gateway) sendMessage(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req sendMessage
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	_, err := g.svc.Messages.Send(ctx, cc.Identity(), req.ConversationType, req.ConversationID, req.Text, req.Attachments)
	return err
}

func (g *Gateway) editMessage(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req editMessage
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	_, err := g.svc.Messages.Edit(ctx, cc.Identity(), req.MessageID, req.Text)
	return err
}

func (g *Gateway) deleteMessage(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req messageRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	return g.svc.Messages.Delete(ctx, cc.Identity(), req.MessageID)
}

// =============================================================================
// Communities, posts and comments
// =============================================================================

func (g *Gateway) joinCommunity(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req communityRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	if err := g.svc.Authz.Authorize(ctx, cc.Identity(), authz.Community(req.CommunityID), authz.ActionJoin); err != nil {
		return err
	}
	return g.join(cc, websocket.CommunityRoom(req.CommunityID))
}

func (g *Gateway) leaveCommunity(_ context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req communityRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	return g.leave(cc, websocket.CommunityRoom(req.CommunityID))
}

func (g *Gateway) joinPost(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req postRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	if _, err := g.svc.Posts.Readable(ctx, cc.Identity(), req.PostID); err != nil {
		return err
	}
	return g.join(cc, websocket.PostRoom(req.PostID))
}

func (g *Gateway) leavePost(_ context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req postRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	return g.leave(cc, websocket.PostRoom(req.PostID))
}

func (g *Gateway) createComment(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req createComment
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	_, err := g.svc.Comments.Create(ctx, cc.Identity(), req.PostID, req.Content, req.ParentID)
	return err
}

func (g *Gateway) toggleLike(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req commentRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	_, err := g.svc.Comments.ToggleLike(ctx, cc.Identity(), req.CommentID)
	return err
}

func (g *Gateway) deleteComment(ctx context.Context, cc websocket.ConnContext, msg websocket.Message) error {
	var req commentRef
	if err := decode(msg.Data, &req); err != nil {
		return err
	}
	return g.svc.Comments.Delete(ctx, cc.Identity(), req.CommentID)
}

// =============================================================================
// Fixed rooms
// =============================================================================

func (g *Gateway) joinFixed(room websocket.Room, adminOnly bool) handlerFunc {
	return func(ctx context.Context, cc websocket.ConnContext, _ websocket.Message) error {
		if adminOnly {
			if err := g.svc.Authz.Authorize(ctx, cc.Identity(), authz.Platform(), authz.ActionAdminister); err != nil {
				return err
			}
		}
		return g.join(cc, room)
	}
}

func (g *Gateway) leaveFixed(room websocket.Room) handlerFunc {
	return func(_ context.Context, cc websocket.ConnContext, _ websocket.Message) error {
		return g.leave(cc, room)
	}
}

func (g *Gateway) join(cc websocket.ConnContext, room websocket.Room) error {
	joined, err := g.conns.JoinConnection(cc.ConnID, room)
	if err != nil {
		return err
	}
	if joined {
		g.log.Debug("Client joined room", "clientID", cc.ConnID, "userID", cc.UserID, "room", room.String())
	}
	return nil
}

func (g *Gateway) leave(cc websocket.ConnContext, room websocket.Room) error {
	left, err := g.conns.LeaveConnection(cc.ConnID, room)
	if err != nil {
		return err
	}
	if left {
		g.log.Debug("Client left room", "clientID", cc.ConnID, "userID", cc.UserID, "room", room.String())
	}
	return nil
}

var _ websocket.InboundHandler = (*Gateway)(nil)
