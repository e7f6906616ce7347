package gateway_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/database/databasetest"
	"civic-realtime/internal/gateway"
	"civic-realtime/internal/models"
	"civic-realtime/internal/notification"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/services"
	ws "civic-realtime/internal/websocket"
	"civic-realtime/internal/websocket/websockettest"
	"civic-realtime/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type harness struct {
	db          *gorm.DB
	hub         *ws.Hub
	gw          *gateway.Gateway
	svc         *services.Services
	communities repository.CommunityRepository

	owner, member, outsider, admin auth.Identity
	communityID                    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db := databasetest.Open(t)
	users := repository.NewUserRepository(db)

	h := &harness{db: db, communities: repository.NewCommunityRepository(db)}
	mk := func(name, role string) auth.Identity {
		u := &models.User{Username: name, Email: name + "@civic.test", Role: role}
		require.NoError(t, users.Create(ctx, u))
		return auth.Identity{UserID: u.ID, Role: role}
	}
	h.owner = mk("owner", models.RoleUser)
	h.member = mk("member", models.RoleUser)
	h.outsider = mk("outsider", models.RoleUser)
	h.admin = mk("admin", models.RoleAdmin)

	c := &models.Community{Name: "old-town", OwnerID: h.owner.UserID, Status: models.CommunityApproved}
	require.NoError(t, h.communities.Create(ctx, c))
	require.NoError(t, h.communities.AddMember(ctx, c.ID, h.member.UserID, models.MemberRoleMember))
	h.communityID = c.ID

	h.hub = ws.NewHub(nil, ws.Options{SendBufferSize: 64}, logger.Discard())
	h.svc = services.New(db, h.hub, logger.Discard())
	h.gw = gateway.New(h.hub, h.svc, logger.Discard())
	h.hub.SetInboundHandler(h.gw)

	runCtx, cancel := context.WithCancel(context.Background())
	go h.hub.Run(runCtx)
	t.Cleanup(func() {
		cancel()
		<-h.hub.Done()
	})
	return h
}

// serve connects identity with running pumps.
func (h *harness) serve(t *testing.T, identity auth.Identity) (*ws.Client, *websockettest.Conn) {
	t.Helper()
	conn := websockettest.NewConn()
	c, err := h.hub.Serve(context.Background(), conn, identity)
	require.NoError(t, err)
	conn.WaitFor(t, ws.EventConnected, 1)
	return c, conn
}

// attach connects identity without pumps so frames can be drained.
func (h *harness) attach(t *testing.T, identity auth.Identity) *ws.Client {
	t.Helper()
	c, err := h.hub.Attach(context.Background(), websockettest.NewConn(), identity)
	require.NoError(t, err)
	c.Drain()
	return c
}

func (h *harness) handle(c *ws.Client, event ws.EventName, payload any) error {
	data, _ := json.Marshal(payload)
	return h.gw.HandleInbound(context.Background(), c.Context(), ws.Message{Event: event, Data: data})
}

func (h *harness) post(t *testing.T, author auth.Identity) *models.Post {
	t.Helper()
	p, err := h.svc.Posts.Create(context.Background(), author, models.CreatePostRequest{
		Title: "Library hours", CommunityID: &h.communityID,
	})
	require.NoError(t, err)
	return p
}

func errorsOf(t *testing.T, raw []json.RawMessage) []ws.ErrorData {
	t.Helper()
	out := make([]ws.ErrorData, len(raw))
	for i, r := range raw {
		require.NoError(t, json.Unmarshal(r, &out[i]))
	}
	return out
}

func TestNonMemberCannotJoinCommunityFeed(t *testing.T) {
	h := newHarness(t)
	c, conn := h.serve(t, h.outsider)

	conn.Send(t, ws.EventJoinCommunityFeedRoom, map[string]string{"communityId": h.communityID})

	errs := errorsOf(t, conn.WaitFor(t, ws.EventError, 1))
	assert.Equal(t, "Not authorized to join this community", errs[0].Error)
	assert.Equal(t, ws.EventJoinCommunityFeedRoom, errs[0].Event)
	assert.False(t, h.hub.Rooms().Has(c, ws.CommunityRoom(h.communityID)))
}

func TestMemberJoinsCommunityAndPostRooms(t *testing.T) {
	h := newHarness(t)
	c := h.attach(t, h.member)
	post := h.post(t, h.owner)

	require.NoError(t, h.handle(c, ws.EventJoinCommunityFeedRoom, map[string]string{"communityId": h.communityID}))
	require.NoError(t, h.handle(c, ws.EventJoinPostRoom, map[string]string{"postId": post.ID}))
	assert.True(t, h.hub.Rooms().Has(c, ws.CommunityRoom(h.communityID)))
	assert.True(t, h.hub.Rooms().Has(c, ws.PostRoom(post.ID)))

	require.NoError(t, h.handle(c, ws.EventLeavePostRoom, map[string]string{"postId": post.ID}))
	assert.False(t, h.hub.Rooms().Has(c, ws.PostRoom(post.ID)))
}

func TestCommentNotifiesPostAuthorOnce(t *testing.T) {
	h := newHarness(t)
	post := h.post(t, h.owner)
	_, ownerConn := h.serve(t, h.owner)
	_, memberConn := h.serve(t, h.member)

	memberConn.Send(t, ws.EventJoinPostRoom, map[string]string{"postId": post.ID})
	memberConn.Send(t, ws.EventCreateComment, map[string]string{"postId": post.ID, "content": "Open on Sundays?"})

	memberConn.WaitFor(t, ws.EventNewComment, 1)
	notes := ownerConn.WaitFor(t, ws.EventNewNotification, 1)
	var payload notification.Payload
	require.NoError(t, json.Unmarshal(notes[0], &payload))
	assert.Equal(t, notification.TypeCommentPost, payload.Type)
	assert.Equal(t, h.member.UserID, payload.ActorID)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, ownerConn.Count(ws.EventNewNotification))
	assert.Zero(t, memberConn.Count(ws.EventNewNotification))
	assert.Zero(t, memberConn.Count(ws.EventError))
}

func TestCommentOnOwnPostSendsNoNotification(t *testing.T) {
	h := newHarness(t)
	post := h.post(t, h.owner)
	_, ownerConn := h.serve(t, h.owner)

	ownerConn.Send(t, ws.EventJoinPostRoom, map[string]string{"postId": post.ID})
	ownerConn.Send(t, ws.EventCreateComment, map[string]string{"postId": post.ID, "content": "Also open late Fridays"})

	ownerConn.WaitFor(t, ws.EventNewComment, 1)
	assert.Zero(t, ownerConn.Count(ws.EventNewNotification))
}

func TestRevokedMembershipIsEnforcedMidSession(t *testing.T) {
	h := newHarness(t)
	post := h.post(t, h.owner)
	c := h.attach(t, h.member)

	require.NoError(t, h.handle(c, ws.EventJoinCommunityRoom, map[string]string{"communityId": h.communityID}))
	require.True(t, h.hub.Rooms().Has(c, ws.CommunityRoom(h.communityID)))

	require.NoError(t, h.svc.Communities.RemoveMember(context.Background(), h.owner, h.communityID, h.member.UserID, "off topic"))
	assert.False(t, h.hub.Rooms().Has(c, ws.CommunityRoom(h.communityID)))

	err := h.handle(c, ws.EventJoinCommunityFeedRoom, map[string]string{"communityId": h.communityID})
	assert.Equal(t, "Not authorized to join this community", apperror.PublicMessage(err))

	err = h.handle(c, ws.EventCreateComment, map[string]string{"postId": post.ID, "content": "still here?"})
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))

	var comments int64
	require.NoError(t, h.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)
}

func TestAdminRooms(t *testing.T) {
	h := newHarness(t)
	user := h.attach(t, h.member)
	admin := h.attach(t, h.admin)

	err := h.handle(user, ws.EventJoinAdminApprovalRoom, nil)
	assert.Equal(t, "Admin access required", apperror.PublicMessage(err))
	assert.False(t, h.hub.Rooms().Has(user, ws.AdminApprovalsRoom()))

	// a forged role in the token is not enough
	forged := h.attach(t, auth.Identity{UserID: h.member.UserID, Role: models.RoleAdmin})
	err = h.handle(forged, ws.EventJoinAdminDashboardRoom, nil)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))

	require.NoError(t, h.handle(admin, ws.EventJoinAdminApprovalRoom, nil))
	require.NoError(t, h.handle(admin, ws.EventJoinAdminDashboardRoom, nil))
	assert.True(t, h.hub.Rooms().Has(admin, ws.AdminApprovalsRoom()))
	assert.True(t, h.hub.Rooms().Has(admin, ws.AdminDashboardRoom()))

	require.NoError(t, h.handle(admin, ws.EventLeaveAdminApprovalRoom, nil))
	assert.False(t, h.hub.Rooms().Has(admin, ws.AdminApprovalsRoom()))
}

func TestGlobalFeedNeedsNoMembership(t *testing.T) {
	h := newHarness(t)
	c := h.attach(t, h.outsider)

	require.NoError(t, h.handle(c, ws.EventJoinGlobalFeedRoom, nil))
	assert.True(t, h.hub.Rooms().Has(c, ws.GlobalFeedRoom()))
	require.NoError(t, h.handle(c, ws.EventLeaveGlobalFeedRoom, nil))
	assert.False(t, h.hub.Rooms().Has(c, ws.GlobalFeedRoom()))
}

func TestConversationRoomRequiresParticipant(t *testing.T) {
	h := newHarness(t)
	conv := &models.Conversation{Type: models.ConversationGroup, Name: "block captains"}
	require.NoError(t, repository.NewConversationRepository(h.db).Create(context.Background(), conv,
		[]string{h.owner.UserID, h.member.UserID}))
	outsider := h.attach(t, h.outsider)
	member := h.attach(t, h.member)

	ref := map[string]string{"conversationType": "group", "conversationId": conv.ID}
	err := h.handle(outsider, ws.EventJoinRoom, ref)
	assert.Equal(t, "Not a participant of this conversation", apperror.PublicMessage(err))

	require.NoError(t, h.handle(member, ws.EventJoinRoom, ref))
	assert.True(t, h.hub.Rooms().Has(member, ws.ConversationRoom(conv.ID)))

	err = h.handle(outsider, ws.EventSendMessage, map[string]any{
		"conversationType": "group", "conversationId": conv.ID, "text": "hello?",
	})
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))
}

func TestMalformedPayloads(t *testing.T) {
	h := newHarness(t)
	c := h.attach(t, h.member)

	err := h.handle(c, ws.EventJoinCommunityFeedRoom, map[string]string{})
	assert.Equal(t, "communityId is required", apperror.PublicMessage(err))

	err = h.handle(c, ws.EventJoinPostRoom, map[string]string{"postId": "42"})
	assert.Equal(t, "invalid postId", apperror.PublicMessage(err))

	err = h.handle(c, ws.EventJoinRoom, map[string]string{"conversationType": "broadcast", "conversationId": h.communityID})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	err = h.gw.HandleInbound(context.Background(), c.Context(), ws.Message{Event: "dropTables"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

type denyAll struct{ calls int }

func (d *denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) {
	d.calls++
	return false, nil
}

func TestRateLimitedEventsAreRejected(t *testing.T) {
	h := newHarness(t)
	limiter := &denyAll{}
	h.gw.WithRateLimit(limiter, 5, time.Second)
	c := h.attach(t, h.outsider)

	err := h.handle(c, ws.EventJoinGlobalFeedRoom, nil)
	assert.Equal(t, "Too many requests, slow down", apperror.PublicMessage(err))
	assert.Equal(t, 1, limiter.calls)
	assert.False(t, h.hub.Rooms().Has(c, ws.GlobalFeedRoom()))
}
