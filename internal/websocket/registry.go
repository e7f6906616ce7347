package websocket

import (
	"sort"
	"sync"
)

// Registry tracks live connections per user. A user is online iff at least
// one of its connections is registered.
type Registry interface {
	// Register adds c under userID and reports whether the user just came online.
	Register(userID string, c *Client) (cameOnline bool)
	// Unregister removes c and reports whether it was its user's last connection.
	Unregister(c *Client) (removed, wentOffline bool)
	IsOnline(userID string) bool
	OnlineUserIDs() []string
	ConnectionsOf(userID string) []*Client
	Lookup(connID string) (*Client, bool)
	All() []*Client
	Count() int
}

type MemoryRegistry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*Client
	byConn map[string]*Client
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byUser: make(map[string]map[string]*Client),
		byConn: make(map[string]*Client),
	}
}

func (r *MemoryRegistry) Register(userID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[c.id]; ok {
		return false
	}
	conns := r.byUser[userID]
	cameOnline := len(conns) == 0
	if conns == nil {
		conns = make(map[string]*Client)
		r.byUser[userID] = conns
	}
	conns[c.id] = c
	r.byConn[c.id] = c
	return cameOnline
}

func (r *MemoryRegistry) Unregister(c *Client) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[c.id]; !ok {
		return false, false
	}
	delete(r.byConn, c.id)

	conns := r.byUser[c.userID]
	delete(conns, c.id)
	if len(conns) == 0 {
		delete(r.byUser, c.userID)
		return true, true
	}
	return true, false
}

func (r *MemoryRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUserIDs returns each online user once, sorted.
func (r *MemoryRegistry) OnlineUserIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

func (r *MemoryRegistry) ConnectionsOf(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Client, 0, len(r.byUser[userID]))
	for _, c := range r.byUser[userID] {
		conns = append(conns, c)
	}
	return conns
}

func (r *MemoryRegistry) Lookup(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byConn[connID]
	return c, ok
}

func (r *MemoryRegistry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Client, 0, len(r.byConn))
	for _, c := range r.byConn {
		conns = append(conns, c)
	}
	return conns
}

func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
