package websocket

import "sync"

// RoomIndex maps rooms to the connections joined to them. All mutation goes
// through Join, Leave and LeaveAll.
type RoomIndex struct {
	mu      sync.RWMutex
	members map[Room]map[string]*Client
	joined  map[string]map[Room]struct{}
}

func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		members: make(map[Room]map[string]*Client),
		joined:  make(map[string]map[Room]struct{}),
	}
}

// Join adds c to room. It reports false when c was already a member or is
// closed; a closed connection can never rejoin.
func (idx *RoomIndex) Join(c *Client, room Room) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if c.State() == StateClosed {
		return false
	}
	set := idx.members[room]
	if set == nil {
		set = make(map[string]*Client)
		idx.members[room] = set
	}
	if _, ok := set[c.id]; ok {
		return false
	}
	set[c.id] = c

	rooms := idx.joined[c.id]
	if rooms == nil {
		rooms = make(map[Room]struct{})
		idx.joined[c.id] = rooms
	}
	rooms[room] = struct{}{}
	return true
}

func (idx *RoomIndex) Leave(c *Client, room Room) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.leaveLocked(c.id, room)
}

func (idx *RoomIndex) leaveLocked(connID string, room Room) bool {
	set := idx.members[room]
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(idx.members, room)
	}
	if rooms := idx.joined[connID]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(idx.joined, connID)
		}
	}
	return true
}

// LeaveAll releases every membership of c and returns the rooms it left.
func (idx *RoomIndex) LeaveAll(c *Client) []Room {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var left []Room
	for room := range idx.joined[c.id] {
		left = append(left, room)
	}
	for _, room := range left {
		idx.leaveLocked(c.id, room)
	}
	return left
}

func (idx *RoomIndex) MembersOf(room Room) []*Client {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	set := idx.members[room]
	out := make([]*Client, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

func (idx *RoomIndex) RoomsOf(c *Client) []Room {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Room, 0, len(idx.joined[c.id]))
	for room := range idx.joined[c.id] {
		out = append(out, room)
	}
	return out
}

func (idx *RoomIndex) Has(c *Client, room Room) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.members[room][c.id]
	return ok
}

func (idx *RoomIndex) Size(room Room) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.members[room])
}
