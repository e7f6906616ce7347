package websocket

import (
	"encoding/json"
)

// EventName is the "event" field of a wire envelope.
type EventName string

// Client -> server events
const (
	EventJoinRoom                EventName = "joinRoom"
	EventLeaveRoom               EventName = "leaveRoom"
	EventSendMessage             EventName = "sendMessage"
	EventEditMessage             EventName = "editMessage"
	EventDeleteMessage           EventName = "deleteMessage"
	EventJoinGlobalFeedRoom      EventName = "joinGlobalFeedRoom"
	EventLeaveGlobalFeedRoom     EventName = "leaveGlobalFeedRoom"
	EventJoinCommunityFeedRoom   EventName = "joinCommunityFeedRoom"
	EventLeaveCommunityFeedRoom  EventName = "leaveCommunityFeedRoom"
	EventJoinPostRoom            EventName = "joinPostRoom"
	EventLeavePostRoom           EventName = "leavePostRoom"
	EventCreateComment           EventName = "createComment"
	EventToggleLikeComment       EventName = "toggleLikeComment"
	EventDeleteComment           EventName = "deleteComment"
	EventJoinCommunityRoom       EventName = "joinCommunityRoom"
	EventLeaveCommunityRoom      EventName = "leaveCommunityRoom"
	EventJoinAdminApprovalRoom   EventName = "joinAdminApprovalRoom"
	EventLeaveAdminApprovalRoom  EventName = "leaveAdminApprovalRoom"
	EventJoinAdminDashboardRoom  EventName = "joinAdminDashboardRoom"
	EventLeaveAdminDashboardRoom EventName = "leaveAdminDashboardRoom"
)

// Server -> client events
const (
	EventConnected                EventName = "connected"
	EventNewMessage               EventName = "newMessage"
	EventMessageEdited            EventName = "messageEdited"
	EventMessageDeleted           EventName = "messageDeleted"
	EventNewComment               EventName = "newComment"
	EventCommentLikeUpdate        EventName = "commentLikeUpdate"
	EventCommentDeleted           EventName = "commentDeleted"
	EventNewPost                  EventName = "newPost"
	EventPostUpdated              EventName = "postUpdated"
	EventPostDeleted              EventName = "postDeleted"
	EventPollVoteUpdated          EventName = "pollVoteUpdated"
	EventPostReported             EventName = "postReported"
	EventModerationLogCreated     EventName = "moderation:log:created"
	EventNotificationCount        EventName = "notification:count:update"
	EventNewNotification          EventName = "newNotification"
	EventOnlineList               EventName = "user:onlineList"
	EventNewFollower              EventName = "user:newFollower"
	EventFollowingStatusUpdate    EventName = "user:followingStatusUpdate"
	EventCommunityApprovalRequest EventName = "community:newApprovalRequest"
	EventCommunityApproved        EventName = "community:approved"
	EventCommunityRejected        EventName = "community:rejected"
	EventMembershipRequestNew     EventName = "membership:request:new"
	EventMembershipApproved       EventName = "membership:request:approved"
	EventMembershipRejected       EventName = "membership:request:rejected"
	EventInvitationSent           EventName = "invitation:sent"
	EventInvitationAccepted       EventName = "invitation:accepted"
	EventInvitationDeclined       EventName = "invitation:declined"
	EventError                    EventName = "errorMessage"
)

// Message is the wire envelope in both directions. Data stays raw until the
// handler for Event decodes it.
type Message struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode builds one outbound frame.
func Encode(event EventName, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: event, Data: data})
}

// Decode parses the envelope of an inbound frame.
func Decode(frame []byte) (Message, error) {
	var msg Message
	err := json.Unmarshal(frame, &msg)
	return msg, err
}

type ConnectedData struct {
	ConnectionID string   `json:"connectionId"`
	UserID       string   `json:"userId"`
	Rooms        []string `json:"rooms"`
}

// ErrorData is the errorMessage payload. Error and Message carry the same
// text; older clients read one, newer the other.
type ErrorData struct {
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Kind    string    `json:"kind"`
	Event   EventName `json:"event,omitempty"`
}

type CountData struct {
	Count int64 `json:"count"`
}
