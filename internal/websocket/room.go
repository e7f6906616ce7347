package websocket

import (
	"fmt"
	"strings"
)

type RoomKind string

const (
	RoomPersonal       RoomKind = "user"
	RoomCommunity      RoomKind = "community"
	RoomPost           RoomKind = "post"
	RoomConversation   RoomKind = "conversation"
	RoomGlobalFeed     RoomKind = "global:feed"
	RoomAdminApprovals RoomKind = "admin:approvals"
	RoomAdminDashboard RoomKind = "admin:dashboard_logs"
)

// Room identifies a broadcast channel. It is a comparable value and is
// used directly as a map key. Build one with the constructors below; the
// wire form comes only from String.
type Room struct {
	kind RoomKind
	id   string
}

func PersonalRoom(userID string) Room       { return Room{kind: RoomPersonal, id: userID} }
func CommunityRoom(communityID string) Room { return Room{kind: RoomCommunity, id: communityID} }
func PostRoom(postID string) Room           { return Room{kind: RoomPost, id: postID} }
func ConversationRoom(conversationID string) Room {
	return Room{kind: RoomConversation, id: conversationID}
}
func GlobalFeedRoom() Room     { return Room{kind: RoomGlobalFeed} }
func AdminApprovalsRoom() Room { return Room{kind: RoomAdminApprovals} }
func AdminDashboardRoom() Room { return Room{kind: RoomAdminDashboard} }

// FeedRoom is where content for an optional community is broadcast.
func FeedRoom(communityID *string) Room {
	if communityID != nil && *communityID != "" {
		return CommunityRoom(*communityID)
	}
	return GlobalFeedRoom()
}

func (r Room) Kind() RoomKind { return r.kind }
func (r Room) ID() string     { return r.id }
func (r Room) IsZero() bool   { return r.kind == "" }

func (r Room) String() string {
	switch r.kind {
	case RoomGlobalFeed, RoomAdminApprovals, RoomAdminDashboard:
		return string(r.kind)
	case "":
		return ""
	default:
		return string(r.kind) + ":" + r.id
	}
}

// ParseRoom is the inverse of Room.String.
func ParseRoom(s string) (Room, error) {
	switch RoomKind(s) {
	case RoomGlobalFeed, RoomAdminApprovals, RoomAdminDashboard:
		return Room{kind: RoomKind(s)}, nil
	}

	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Room{}, fmt.Errorf("invalid room %q", s)
	}
	switch RoomKind(kind) {
	case RoomPersonal, RoomCommunity, RoomPost, RoomConversation:
		return Room{kind: RoomKind(kind), id: id}, nil
	default:
		return Room{}, fmt.Errorf("unknown room kind %q", kind)
	}
}

func (r Room) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}
