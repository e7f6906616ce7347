package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSendQueueFull      = errors.New("send queue full")
)

// Conn is the part of *websocket.Conn a Client uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// ConnState is the authentication state of one connection. It only moves
// forward: Unauthenticated -> Authenticated -> Closed.
type ConnState int32

const (
	StateUnauthenticated ConnState = iota
	StateAuthenticated
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// ConnContext is handed to every inbound handler instead of the Client.
type ConnContext struct {
	ConnID string
	UserID string
	Role   string
}

func (cc ConnContext) Identity() auth.Identity {
	return auth.Identity{UserID: cc.UserID, Role: cc.Role}
}

type Client struct {
	id     string
	userID string
	role   string
	hub    *Hub
	conn   Conn
	send   chan []byte
	state  atomic.Int32
	log    *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(hub *Hub, conn Conn, identity auth.Identity, bufferSize int) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	log := slog.Default()
	if hub != nil {
		log = hub.log
	}

	return &Client{
		id:     id,
		userID: identity.UserID,
		role:   identity.Role,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		log:    log.With("clientID", id, "userID", identity.UserID),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }
func (c *Client) Role() string   { return c.role }

func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Client) Context() ConnContext {
	return ConnContext{ConnID: c.id, UserID: c.userID, Role: c.role}
}

// authenticate moves the connection out of Unauthenticated. It fails for a
// connection that was already closed.
func (c *Client) authenticate() bool {
	return c.state.CompareAndSwap(int32(StateUnauthenticated), int32(StateAuthenticated))
}

// Close marks the client closed and tears down the transport. Safe to call
// more than once and from any goroutine. The send channel is never closed;
// the write pump exits on the context instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		c.cancel()
		if err := c.conn.Close(); err != nil {
			c.log.Debug("Error closing connection", "error", err)
		}
		c.log.Debug("Client marked as closed")
	})
}

// Enqueue hands a frame to the write pump without blocking. A client whose
// queue is full is closed: it is too slow to keep up with fan-out.
func (c *Client) Enqueue(frame []byte) error {
	if c.State() == StateClosed {
		return ErrClientDisconnected
	}
	select {
	case c.send <- frame:
		return nil
	default:
		c.log.Warn("Send buffer full, closing client")
		c.Close()
		return ErrSendQueueFull
	}
}

func (c *Client) Send(event EventName, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	return c.Enqueue(frame)
}

// SendError reports err to this connection only.
func (c *Client) SendError(origin EventName, err error) {
	msg := apperror.PublicMessage(err)
	payload := ErrorData{Error: msg, Message: msg, Kind: string(apperror.KindOf(err)), Event: origin}
	if sendErr := c.Send(EventError, payload); sendErr != nil {
		c.log.Debug("Dropped error reply", "error", sendErr)
	}
}

// Drain removes and returns the frames still queued. Only meaningful while
// no write pump is running.
func (c *Client) Drain() [][]byte {
	var frames [][]byte
	for {
		select {
		case f := <-c.send:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.hub.Detach(c)
	}()

	opts := c.hub.opts
	c.conn.SetReadLimit(opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.State() == StateClosed {
			return websocket.ErrCloseSent
		}
		return c.conn.SetReadDeadline(time.Now().Add(opts.PongWait))
	})

	c.log.Debug("ReadPump started")

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Error("WebSocket error", "error", err)
			} else {
				c.log.Debug("WebSocket connection closed", "error", err)
			}
			return
		}

		msg, err := Decode(frame)
		if err != nil || msg.Event == "" {
			c.SendError("", apperror.Invalid("Invalid message format"))
			continue
		}

		// one at a time so events from this connection keep arrival order
		c.hub.handleInbound(c, msg)
	}
}

func (c *Client) writePump() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.pingPeriod())
	defer func() {
		ticker.Stop()
		c.log.Debug("WritePump finished")
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug("Error writing message", "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Error sending ping", "error", err)
				c.Close()
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
