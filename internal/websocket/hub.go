package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/config"

	"github.com/samber/lo"
)

var ErrHubClosed = errors.New("hub closed")

type Options struct {
	SendBufferSize int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
	HandlerTimeout time.Duration
	StatsInterval  time.Duration
	AllowedOrigins []string
}

func OptionsFromConfig(cfg config.WebSocketConfig, allowedOrigins []string) Options {
	return Options{
		SendBufferSize: cfg.SendBufferSize,
		MaxMessageSize: cfg.MaxMessageSize,
		PongWait:       cfg.PongWait,
		WriteWait:      cfg.WriteWait,
		HandlerTimeout: cfg.HandlerTimeout,
		StatsInterval:  cfg.StatsInterval,
		AllowedOrigins: allowedOrigins,
	}
}

func (o Options) withDefaults() Options {
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 256
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 64 * 1024
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = 10 * time.Second
	}
	return o
}

// Send pings to peer with this period. Must be less than PongWait.
func (o Options) pingPeriod() time.Duration {
	return (o.PongWait * 9) / 10
}

// InboundHandler processes one client event. A returned error is reported
// to that connection as errorMessage.
type InboundHandler interface {
	HandleInbound(ctx context.Context, cc ConnContext, msg Message) error
}

type InboundHandlerFunc func(ctx context.Context, cc ConnContext, msg Message) error

func (f InboundHandlerFunc) HandleInbound(ctx context.Context, cc ConnContext, msg Message) error {
	return f(ctx, cc, msg)
}

// RoomResolver lists the rooms a user joins automatically on connect,
// besides the personal room.
type RoomResolver func(ctx context.Context, userID string) ([]Room, error)

// PresenceStore mirrors online/offline transitions outside the process.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
}

// Fanout is what business code needs from the hub.
type Fanout interface {
	Dispatch(ctx context.Context, ev Event) DeliveryReport
	IsOnline(userID string) bool
	JoinUser(userID string, room Room) int
	LeaveUser(userID string, room Room) int
}

// registration carries the outcome back to Attach on done.
type registration struct {
	client *Client
	rooms  []Room
	done   chan error
}

type unregistration struct {
	client *Client
	done   chan struct{}
}

type presenceUpdate struct {
	userID string
	online bool
}

// Hub owns the registry and the room index. Registration and
// unregistration are serialised through Run, so online-list broadcasts go
// out in the order the transitions happened.
type Hub struct {
	registry Registry
	rooms    *RoomIndex
	opts     Options
	log      *slog.Logger
	stats    Stats

	handler      InboundHandler
	initialRooms RoomResolver
	presence     PresenceStore

	register        chan registration
	unregister      chan unregistration
	presenceUpdates chan presenceUpdate
	done            chan struct{}
}

func NewHub(registry Registry, opts Options, log *slog.Logger) *Hub {
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Hub{
		registry:        registry,
		rooms:           NewRoomIndex(),
		opts:            opts.withDefaults(),
		log:             log,
		register:        make(chan registration),
		unregister:      make(chan unregistration),
		presenceUpdates: make(chan presenceUpdate, 1024),
		done:            make(chan struct{}),
	}
}

// The setters below must be called before Run.

func (h *Hub) SetInboundHandler(handler InboundHandler) { h.handler = handler }
func (h *Hub) SetRoomResolver(resolver RoomResolver)    { h.initialRooms = resolver }
func (h *Hub) SetPresenceStore(store PresenceStore)     { h.presence = store }

func (h *Hub) Registry() Registry { return h.registry }
func (h *Hub) Rooms() *RoomIndex  { return h.rooms }

func (h *Hub) Run(ctx context.Context) {
	var tick <-chan time.Time
	if h.opts.StatsInterval > 0 {
		ticker := time.NewTicker(h.opts.StatsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	if h.presence != nil {
		go h.runPresenceMirror(ctx)
	}

	h.log.Info("WebSocket hub started")

	for {
		select {
		case reg := <-h.register:
			reg.done <- h.registerClient(reg.client, reg.rooms)

		case un := <-h.unregister:
			h.unregisterClient(un.client)
			close(un.done)

		case <-tick:
			s := h.Stats()
			h.log.Info("WebSocket hub stats",
				"connections", s.ActiveConnections,
				"onlineUsers", s.OnlineUsers,
				"events", s.EventsDispatched,
				"deliveries", s.Deliveries,
				"deliveryFailures", s.DeliveryFailures)

		case <-ctx.Done():
			h.shutdown()
			close(h.done)
			h.log.Info("WebSocket hub shutting down")
			return
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Attach authenticates conn as identity and registers it. Initial rooms are
// resolved before any in-memory state changes. Run must be running.
func (h *Hub) Attach(ctx context.Context, conn Conn, identity auth.Identity) (*Client, error) {
	var rooms []Room
	if h.initialRooms != nil {
		resolved, err := h.initialRooms(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("resolve initial rooms: %w", err)
		}
		rooms = resolved
	}

	c := newClient(h, conn, identity, h.opts.SendBufferSize)
	if !c.authenticate() {
		return nil, ErrClientDisconnected
	}

	reg := registration{client: c, rooms: rooms, done: make(chan error, 1)}
	select {
	case h.register <- reg:
	case <-h.done:
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := <-reg.done; err != nil {
		return nil, err
	}
	return c, nil
}

// Serve attaches conn and starts its pumps.
func (h *Hub) Serve(ctx context.Context, conn Conn, identity auth.Identity) (*Client, error) {
	c, err := h.Attach(ctx, conn, identity)
	if err != nil {
		return nil, err
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

// Detach closes c and releases its registry entry and room memberships.
// It returns once the hub has processed the removal.
func (h *Hub) Detach(c *Client) {
	c.Close()
	un := unregistration{client: c, done: make(chan struct{})}
	select {
	case h.unregister <- un:
		<-un.done
	case <-h.done:
	}
}

// registerClient returns ErrClientDisconnected when the client closed
// before the hub got to it; nothing is registered in that case.
func (h *Hub) registerClient(c *Client, rooms []Room) error {
	if c.State() == StateClosed {
		return ErrClientDisconnected
	}

	cameOnline := h.registry.Register(c.userID, c)
	h.rooms.Join(c, PersonalRoom(c.userID))
	for _, room := range rooms {
		h.rooms.Join(c, room)
	}
	h.stats.connectionsOpened.Add(1)

	joined := lo.Map(h.rooms.RoomsOf(c), func(r Room, _ int) string { return r.String() })
	sort.Strings(joined)
	if err := c.Send(EventConnected, ConnectedData{ConnectionID: c.id, UserID: c.userID, Rooms: joined}); err != nil {
		c.log.Debug("Failed to send connected event", "error", err)
	}

	h.log.Info("Client registered", "clientID", c.id, "userID", c.userID, "rooms", len(joined))

	if cameOnline {
		h.mirrorPresence(c.userID, true)
		h.broadcastOnlineList()
	}
	return nil
}

func (h *Hub) unregisterClient(c *Client) {
	h.rooms.LeaveAll(c)
	removed, wentOffline := h.registry.Unregister(c)
	if !removed {
		return
	}
	h.stats.connectionsClosed.Add(1)

	h.log.Info("Client unregistered", "clientID", c.id, "userID", c.userID)

	if wentOffline {
		h.mirrorPresence(c.userID, false)
		h.broadcastOnlineList()
	}
}

func (h *Hub) broadcastOnlineList() {
	h.Dispatch(context.Background(), Event{
		Name:     EventOnlineList,
		Payload:  h.registry.OnlineUserIDs(),
		Audience: ToEveryone(),
	})
}

func (h *Hub) shutdown() {
	clients := h.registry.All()
	for _, c := range clients {
		c.Close()
		h.rooms.LeaveAll(c)
		h.registry.Unregister(c)
	}
	h.log.Info("Closed all clients", "count", len(clients))
}

func (h *Hub) mirrorPresence(userID string, online bool) {
	if h.presence == nil {
		return
	}
	select {
	case h.presenceUpdates <- presenceUpdate{userID: userID, online: online}:
	default:
		h.log.Warn("Presence mirror queue full, dropping update", "userID", userID, "online", online)
	}
}

func (h *Hub) runPresenceMirror(ctx context.Context) {
	for {
		select {
		case u := <-h.presenceUpdates:
			opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
			var err error
			if u.online {
				err = h.presence.SetOnline(opCtx, u.userID)
			} else {
				err = h.presence.SetOffline(opCtx, u.userID)
			}
			cancel()
			if err != nil {
				h.log.Error("Failed to mirror presence", "userID", u.userID, "online", u.online, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleInbound(c *Client, msg Message) {
	if h.handler == nil {
		c.SendError(msg.Event, apperror.Invalidf("unsupported event %q", msg.Event))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, h.opts.HandlerTimeout)
	defer cancel()

	err := h.invoke(ctx, c, msg)
	h.stats.recordInbound(err)
	if err == nil {
		return
	}

	if apperror.KindOf(err) == apperror.KindInternal {
		h.log.Error("Inbound event failed", "event", msg.Event, "clientID", c.id, "userID", c.userID, "error", err)
	} else {
		h.log.Debug("Inbound event rejected", "event", msg.Event, "clientID", c.id, "userID", c.userID, "error", err)
	}
	c.SendError(msg.Event, err)
}

func (h *Hub) invoke(ctx context.Context, c *Client, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperror.Internal(fmt.Errorf("panic handling %s: %v", msg.Event, r))
		}
	}()
	return h.handler.HandleInbound(ctx, c.Context(), msg)
}

// JoinConnection adds one live connection to room.
func (h *Hub) JoinConnection(connID string, room Room) (bool, error) {
	c, ok := h.registry.Lookup(connID)
	if !ok {
		return false, ErrClientDisconnected
	}
	return h.rooms.Join(c, room), nil
}

func (h *Hub) LeaveConnection(connID string, room Room) (bool, error) {
	c, ok := h.registry.Lookup(connID)
	if !ok {
		return false, ErrClientDisconnected
	}
	return h.rooms.Leave(c, room), nil
}

// Reply sends an event to one connection only.
func (h *Hub) Reply(connID string, event EventName, payload any) error {
	c, ok := h.registry.Lookup(connID)
	if !ok {
		return ErrClientDisconnected
	}
	return c.Send(event, payload)
}

// JoinUser adds every live connection of userID to room and returns how
// many were added.
func (h *Hub) JoinUser(userID string, room Room) int {
	n := 0
	for _, c := range h.registry.ConnectionsOf(userID) {
		if h.rooms.Join(c, room) {
			n++
		}
	}
	return n
}

func (h *Hub) LeaveUser(userID string, room Room) int {
	n := 0
	for _, c := range h.registry.ConnectionsOf(userID) {
		if h.rooms.Leave(c, room) {
			n++
		}
	}
	return n
}

func (h *Hub) IsOnline(userID string) bool { return h.registry.IsOnline(userID) }

func (h *Hub) OnlineUserIDs() []string { return h.registry.OnlineUserIDs() }
