package notification

import (
	"context"
	"testing"

	"civic-realtime/internal/database/databasetest"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"
	"civic-realtime/internal/websocket/websockettest"
	"civic-realtime/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	author    = "a0000000-0000-4000-8000-000000000001"
	commenter = "b0000000-0000-4000-8000-000000000002"
)

func newService(t *testing.T, online ...string) (*Service, *websockettest.Recorder, repository.NotificationRepository) {
	t.Helper()
	repo := repository.NewNotificationRepository(databasetest.Open(t))
	rec := websockettest.NewRecorder(online...)
	return NewService(repo, rec, logger.Discard()), rec, repo
}

func TestNotifyOnlineRecipient(t *testing.T) {
	svc, rec, _ := newService(t, author)

	row, err := svc.Notify(context.Background(), Notice{
		RecipientID: author, ActorID: commenter, Type: TypeCommentPost, EntityID: "p1",
	})
	require.NoError(t, err)
	require.NotNil(t, row)

	events := rec.Named(websocket.EventNewNotification)
	require.Len(t, events, 1)
	assert.Equal(t, TypeCommentPost, events[0].Payload.(Payload).Type)
	assert.Equal(t, "users("+author+")", events[0].Audience.String())

	badges := rec.Named(websocket.EventNotificationCount)
	require.Len(t, badges, 1)
	assert.EqualValues(t, 1, badges[0].Payload.(websocket.CountData).Count)
}

func TestNotifyOfflineRecipientIsStoredNotPushed(t *testing.T) {
	svc, rec, repo := newService(t)

	_, err := svc.Notify(context.Background(), Notice{RecipientID: author, ActorID: commenter, Type: TypeFollow})
	require.NoError(t, err)

	assert.Empty(t, rec.Events())
	count, err := repo.CountUnread(context.Background(), author)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestSelfActionIsNoop(t *testing.T) {
	svc, rec, repo := newService(t, author)

	row, err := svc.Notify(context.Background(), Notice{RecipientID: author, ActorID: author, Type: TypeCommentPost})
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Empty(t, rec.Events())

	count, _ := repo.CountUnread(context.Background(), author)
	assert.Zero(t, count)
}

func TestPushBadgesDeduplicates(t *testing.T) {
	svc, rec, _ := newService(t, author)

	n := svc.PushBadges(context.Background(), author, author, commenter)
	assert.Equal(t, 1, n)
	assert.Len(t, rec.Named(websocket.EventNotificationCount), 1)
}
