package websocket_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	ws "civic-realtime/internal/websocket"
	"civic-realtime/internal/websocket/websockettest"
	"civic-realtime/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, configure ...func(*ws.Hub)) *ws.Hub {
	t.Helper()
	hub := ws.NewHub(nil, ws.Options{SendBufferSize: 32}, logger.Discard())
	for _, fn := range configure {
		fn(hub)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
	})
	return hub
}

func attach(t *testing.T, hub *ws.Hub, userID string) (*ws.Client, *websockettest.Conn) {
	t.Helper()
	conn := websockettest.NewConn()
	c, err := hub.Attach(context.Background(), conn, auth.Identity{UserID: userID, Role: "user"})
	require.NoError(t, err)
	return c, conn
}

func onlineLists(t *testing.T, frames [][]byte) [][]string {
	t.Helper()
	var lists [][]string
	for _, m := range websockettest.DecodeFrames(frames) {
		if m.Event != ws.EventOnlineList {
			continue
		}
		var ids []string
		require.NoError(t, json.Unmarshal(m.Data, &ids))
		lists = append(lists, ids)
	}
	return lists
}

func TestAttachJoinsPersonalRoomAndAnnouncesPresence(t *testing.T) {
	hub := startHub(t)
	c, _ := attach(t, hub, "alice")

	assert.Equal(t, ws.StateAuthenticated, c.State())
	assert.True(t, hub.Rooms().Has(c, ws.PersonalRoom("alice")))
	assert.True(t, hub.IsOnline("alice"))

	frames := c.Drain()
	require.Len(t, frames, 2)
	msgs := websockettest.DecodeFrames(frames)
	assert.Equal(t, ws.EventConnected, msgs[0].Event)
	assert.Equal(t, [][]string{{"alice"}}, onlineLists(t, frames))
}

func TestTwoTabsOneOnlineEntry(t *testing.T) {
	hub := startHub(t)
	tab1, _ := attach(t, hub, "alice")
	tab1.Drain()

	tab2, _ := attach(t, hub, "alice")

	assert.Equal(t, []string{"alice"}, hub.OnlineUserIDs())
	assert.Len(t, hub.Registry().ConnectionsOf("alice"), 2)
	// no presence change, so no new list
	assert.Empty(t, onlineLists(t, tab1.Drain()))
	assert.Empty(t, onlineLists(t, tab2.Drain()))

	hub.Detach(tab1)
	assert.True(t, hub.IsOnline("alice"))
	assert.Empty(t, onlineLists(t, tab2.Drain()))
	assert.Equal(t, ws.StateClosed, tab1.State())
	assert.Empty(t, hub.Rooms().RoomsOf(tab1))
}

func TestLastDisconnectBroadcastsOnce(t *testing.T) {
	hub := startHub(t)
	watcher, _ := attach(t, hub, "bob")
	alice, _ := attach(t, hub, "alice")
	watcher.Drain()

	hub.Detach(alice)
	hub.Detach(alice)

	assert.Equal(t, [][]string{{"bob"}}, onlineLists(t, watcher.Drain()))
	assert.False(t, hub.IsOnline("alice"))
}

func TestInitialRoomsResolvedOnConnect(t *testing.T) {
	hub := startHub(t, func(h *ws.Hub) {
		h.SetRoomResolver(func(ctx context.Context, userID string) ([]ws.Room, error) {
			return []ws.Room{ws.CommunityRoom("c1"), ws.CommunityRoom("c2")}, nil
		})
	})
	c, _ := attach(t, hub, "alice")

	assert.ElementsMatch(t,
		[]ws.Room{ws.PersonalRoom("alice"), ws.CommunityRoom("c1"), ws.CommunityRoom("c2")},
		hub.Rooms().RoomsOf(c))

	var connected ws.ConnectedData
	require.NoError(t, json.Unmarshal(websockettest.DecodeFrames(c.Drain())[0].Data, &connected))
	assert.Equal(t, []string{"community:c1", "community:c2", "user:alice"}, connected.Rooms)
}

func TestRoomResolverFailureRegistersNothing(t *testing.T) {
	hub := startHub(t, func(h *ws.Hub) {
		h.SetRoomResolver(func(ctx context.Context, userID string) ([]ws.Room, error) {
			return nil, errors.New("database unavailable")
		})
	})

	_, err := hub.Attach(context.Background(), websockettest.NewConn(), auth.Identity{UserID: "alice"})
	assert.Error(t, err)
	assert.False(t, hub.IsOnline("alice"))
}

func TestInboundErrorsGoToSenderOnly(t *testing.T) {
	hub := startHub(t, func(h *ws.Hub) {
		h.SetInboundHandler(ws.InboundHandlerFunc(func(ctx context.Context, cc ws.ConnContext, msg ws.Message) error {
			switch msg.Event {
			case ws.EventJoinCommunityFeedRoom:
				return apperror.Forbidden("Not authorized to join this community")
			case ws.EventDeleteComment:
				panic("boom")
			}
			return nil
		}))
	})

	conn := websockettest.NewConn()
	_, err := hub.Serve(context.Background(), conn, auth.Identity{UserID: "alice"})
	require.NoError(t, err)
	bystander, _ := attach(t, hub, "bob")
	bystander.Drain()

	conn.Send(t, ws.EventJoinCommunityFeedRoom, map[string]string{"communityId": "c1"})
	conn.Send(t, ws.EventDeleteComment, map[string]string{"commentId": "x"})
	conn.SendRaw([]byte("not json"))

	errs := conn.WaitFor(t, ws.EventError, 3)
	var first ws.ErrorData
	require.NoError(t, json.Unmarshal(errs[0], &first))
	assert.Equal(t, "Not authorized to join this community", first.Message)
	assert.Equal(t, "authorization", first.Kind)

	var second ws.ErrorData
	require.NoError(t, json.Unmarshal(errs[1], &second))
	assert.Equal(t, "internal server error", second.Error)

	assert.Zero(t, websockettest.CountEvents(bystander.Drain(), ws.EventError))
	// the connection survives handler failures
	assert.True(t, hub.IsOnline("alice"))
}

func TestInboundEventsKeepArrivalOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	hub := startHub(t, func(h *ws.Hub) {
		h.SetInboundHandler(ws.InboundHandlerFunc(func(ctx context.Context, cc ws.ConnContext, msg ws.Message) error {
			var p struct{ N string }
			_ = json.Unmarshal(msg.Data, &p)
			if p.N == "1" {
				time.Sleep(20 * time.Millisecond)
			}
			mu.Lock()
			seen = append(seen, p.N)
			mu.Unlock()
			return nil
		}))
	})

	conn := websockettest.NewConn()
	_, err := hub.Serve(context.Background(), conn, auth.Identity{UserID: "alice"})
	require.NoError(t, err)

	for _, n := range []string{"1", "2", "3"} {
		conn.Send(t, ws.EventJoinRoom, map[string]string{"N": n})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1", "2", "3"}, seen)
}

func TestClosingTransportDetaches(t *testing.T) {
	hub := startHub(t)
	conn := websockettest.NewConn()
	c, err := hub.Serve(context.Background(), conn, auth.Identity{UserID: "alice"})
	require.NoError(t, err)
	conn.WaitFor(t, ws.EventConnected, 1)

	conn.Close()

	require.Eventually(t, func() bool { return !hub.IsOnline("alice") }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, ws.StateClosed, c.State())
}

type fakePresence struct {
	mu     sync.Mutex
	events []string
}

func (p *fakePresence) SetOnline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "online:"+userID)
	return nil
}

func (p *fakePresence) SetOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "offline:"+userID)
	return nil
}

func (p *fakePresence) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func TestPresenceMirrorFollowsTransitions(t *testing.T) {
	store := &fakePresence{}
	hub := startHub(t, func(h *ws.Hub) { h.SetPresenceStore(store) })

	tab1, _ := attach(t, hub, "alice")
	tab2, _ := attach(t, hub, "alice")
	hub.Detach(tab1)
	hub.Detach(tab2)

	require.Eventually(t, func() bool { return len(store.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"online:alice", "offline:alice"}, store.snapshot())
}

func TestShutdownClosesClients(t *testing.T) {
	hub := ws.NewHub(nil, ws.Options{}, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	c, err := hub.Attach(context.Background(), websockettest.NewConn(), auth.Identity{UserID: "alice"})
	require.NoError(t, err)

	cancel()
	<-hub.Done()

	assert.Equal(t, ws.StateClosed, c.State())
	assert.Zero(t, hub.Registry().Count())

	_, err = hub.Attach(context.Background(), websockettest.NewConn(), auth.Identity{UserID: "bob"})
	assert.ErrorIs(t, err, ws.ErrHubClosed)
}
