package websocket

import "strings"

// Audience says who receives an event. Resolution happens at dispatch
// time against the live registry and room index.
type Audience interface {
	resolve(h *Hub) []*Client
	String() string
}

type roomAudience struct{ room Room }

func (a roomAudience) resolve(h *Hub) []*Client { return h.rooms.MembersOf(a.room) }
func (a roomAudience) String() string           { return "room(" + a.room.String() + ")" }

// ToRoom targets every connection joined to room.
func ToRoom(room Room) Audience { return roomAudience{room: room} }

type usersAudience struct{ userIDs []string }

func (a usersAudience) resolve(h *Hub) []*Client {
	var out []*Client
	for _, id := range a.userIDs {
		out = append(out, h.rooms.MembersOf(PersonalRoom(id))...)
	}
	return out
}

func (a usersAudience) String() string { return "users(" + strings.Join(a.userIDs, ",") + ")" }

// ToUsers targets the personal rooms of userIDs. Offline users resolve to
// no connections.
func ToUsers(userIDs ...string) Audience { return usersAudience{userIDs: userIDs} }

type roleAudience struct {
	room Room
	role string
}

func (a roleAudience) resolve(h *Hub) []*Client {
	var out []*Client
	for _, c := range h.rooms.MembersOf(a.room) {
		if c.role == a.role {
			out = append(out, c)
		}
	}
	return out
}

func (a roleAudience) String() string {
	return "room(" + a.room.String() + ")[role=" + a.role + "]"
}

// ToRoomWithRole targets members of room whose platform role is role.
func ToRoomWithRole(room Room, role string) Audience { return roleAudience{room: room, role: role} }

type everyoneAudience struct{}

func (everyoneAudience) resolve(h *Hub) []*Client { return h.registry.All() }
func (everyoneAudience) String() string           { return "everyone" }

func ToEveryone() Audience { return everyoneAudience{} }

type unionAudience []Audience

func (u unionAudience) resolve(h *Hub) []*Client {
	var out []*Client
	for _, a := range u {
		out = append(out, a.resolve(h)...)
	}
	return out
}

func (u unionAudience) String() string {
	parts := make([]string, len(u))
	for i, a := range u {
		parts[i] = a.String()
	}
	return "union(" + strings.Join(parts, ", ") + ")"
}

// Union combines audiences. A connection matched by several parts still
// receives the event once.
func Union(parts ...Audience) Audience { return unionAudience(parts) }
