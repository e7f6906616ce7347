// Package websockettest provides an in-memory Conn and a recording Fanout
// for tests of code built on the hub.
package websockettest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	ws "civic-realtime/internal/websocket"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var ErrClosed = errors.New("websockettest: connection closed")

// Conn is an in-memory ws.Conn. Frames pushed with Send are returned by
// ReadMessage; text frames written by the server are kept for inspection.
type Conn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written [][]byte
}

func NewConn() *Conn {
	return &Conn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *Conn) ReadMessage() (int, []byte, error) {
	select {
	case <-c.closed:
		return 0, nil, ErrClosed
	default:
	}
	select {
	case f := <-c.inbound:
		return gorilla.TextMessage, f, nil
	case <-c.closed:
		return 0, nil, ErrClosed
	}
}

func (c *Conn) WriteMessage(messageType int, data []byte) error {
	if c.IsClosed() {
		return ErrClosed
	}
	if messageType != gorilla.TextMessage {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte(nil), data...))
	return nil
}

func (c *Conn) SetReadLimit(int64)                {}
func (c *Conn) SetReadDeadline(time.Time) error   { return nil }
func (c *Conn) SetWriteDeadline(time.Time) error  { return nil }
func (c *Conn) SetPongHandler(func(string) error) {}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *Conn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Send queues an inbound event as if the client had sent it.
func (c *Conn) Send(t testing.TB, event ws.EventName, payload any) {
	t.Helper()
	frame, err := ws.Encode(event, payload)
	require.NoError(t, err)
	c.inbound <- frame
}

// SendRaw queues an inbound frame verbatim.
func (c *Conn) SendRaw(frame []byte) {
	c.inbound <- frame
}

// Messages returns every envelope written so far.
func (c *Conn) Messages() []ws.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return DecodeFrames(c.written)
}

// Events returns the payloads written for one event name.
func (c *Conn) Events(name ws.EventName) []json.RawMessage {
	var out []json.RawMessage
	for _, m := range c.Messages() {
		if m.Event == name {
			out = append(out, m.Data)
		}
	}
	return out
}

func (c *Conn) Count(name ws.EventName) int {
	return len(c.Events(name))
}

// WaitFor blocks until at least n events named name were written.
func (c *Conn) WaitFor(t testing.TB, name ws.EventName, n int) []json.RawMessage {
	t.Helper()
	require.Eventually(t, func() bool { return c.Count(name) >= n }, 2*time.Second, 5*time.Millisecond,
		"waiting for %d %s event(s)", n, name)
	return c.Events(name)
}

func DecodeFrames(frames [][]byte) []ws.Message {
	out := make([]ws.Message, 0, len(frames))
	for _, f := range frames {
		if m, err := ws.Decode(f); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// CountEvents counts envelopes named name in raw frames, e.g. from
// Client.Drain.
func CountEvents(frames [][]byte, name ws.EventName) int {
	n := 0
	for _, m := range DecodeFrames(frames) {
		if m.Event == name {
			n++
		}
	}
	return n
}

// Recorder is a ws.Fanout that records instead of delivering.
type Recorder struct {
	mu     sync.Mutex
	events []ws.Event
	online map[string]bool
	joins  map[string][]ws.Room
	leaves map[string][]ws.Room
}

func NewRecorder(online ...string) *Recorder {
	r := &Recorder{
		online: map[string]bool{},
		joins:  map[string][]ws.Room{},
		leaves: map[string][]ws.Room{},
	}
	for _, id := range online {
		r.online[id] = true
	}
	return r
}

func (r *Recorder) Dispatch(_ context.Context, ev ws.Event) ws.DeliveryReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return ws.DeliveryReport{Targeted: 1, Delivered: 1}
}

func (r *Recorder) IsOnline(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.online[userID]
}

func (r *Recorder) SetOnline(userID string, online bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.online[userID] = online
}

func (r *Recorder) JoinUser(userID string, room ws.Room) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins[userID] = append(r.joins[userID], room)
	if r.online[userID] {
		return 1
	}
	return 0
}

func (r *Recorder) LeaveUser(userID string, room ws.Room) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves[userID] = append(r.leaves[userID], room)
	if r.online[userID] {
		return 1
	}
	return 0
}

func (r *Recorder) Events() []ws.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ws.Event(nil), r.events...)
}

func (r *Recorder) Named(name ws.EventName) []ws.Event {
	var out []ws.Event
	for _, ev := range r.Events() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Recorder) Joins(userID string) []ws.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ws.Room(nil), r.joins[userID]...)
}

func (r *Recorder) Leaves(userID string) []ws.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ws.Room(nil), r.leaves[userID]...)
}
