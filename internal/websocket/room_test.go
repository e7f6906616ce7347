package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStringRoundTrip(t *testing.T) {
	rooms := []Room{
		PersonalRoom("u1"),
		CommunityRoom("c1"),
		PostRoom("p1"),
		ConversationRoom("m1"),
		GlobalFeedRoom(),
		AdminApprovalsRoom(),
		AdminDashboardRoom(),
	}
	want := []string{
		"user:u1", "community:c1", "post:p1", "conversation:m1",
		"global:feed", "admin:approvals", "admin:dashboard_logs",
	}

	for i, room := range rooms {
		assert.Equal(t, want[i], room.String())
		parsed, err := ParseRoom(want[i])
		require.NoError(t, err)
		assert.Equal(t, room, parsed)
	}
}

func TestParseRoomRejects(t *testing.T) {
	for _, s := range []string{"", "user:", "global", "admin:other", "channel:1"} {
		_, err := ParseRoom(s)
		assert.Error(t, err, s)
	}
}

func TestFeedRoom(t *testing.T) {
	id := "c1"
	empty := ""
	assert.Equal(t, CommunityRoom("c1"), FeedRoom(&id))
	assert.Equal(t, GlobalFeedRoom(), FeedRoom(nil))
	assert.Equal(t, GlobalFeedRoom(), FeedRoom(&empty))
}
