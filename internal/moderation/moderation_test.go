package moderation

import (
	"context"
	"errors"
	"testing"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/database/databasetest"
	"civic-realtime/internal/models"
	"civic-realtime/internal/notification"
	"civic-realtime/internal/repository"
	"civic-realtime/internal/websocket"
	"civic-realtime/internal/websocket/websockettest"
	"civic-realtime/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	pipeline *Pipeline
	rec      *websockettest.Recorder
	logs     repository.ModerationLogRepository
	notes    repository.NotificationRepository

	owner, mod, member, admin string
	communityID               string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := databasetest.Open(t)
	users := repository.NewUserRepository(db)
	communities := repository.NewCommunityRepository(db)

	mk := func(name, role string) string {
		u := &models.User{Username: name, Email: name + "@civic.test", Role: role}
		require.NoError(t, users.Create(ctx, u))
		return u.ID
	}
	f := &fixture{db: db}
	f.owner = mk("owner", models.RoleUser)
	f.mod = mk("mod", models.RoleUser)
	f.member = mk("member", models.RoleUser)
	f.admin = mk("admin", models.RoleAdmin)

	c := &models.Community{Name: "riverside", OwnerID: f.owner, Status: models.CommunityApproved}
	require.NoError(t, communities.Create(ctx, c))
	require.NoError(t, communities.AddMember(ctx, c.ID, f.mod, models.MemberRoleModerator))
	require.NoError(t, communities.AddMember(ctx, c.ID, f.member, models.MemberRoleMember))
	f.communityID = c.ID

	f.rec = websockettest.NewRecorder()
	f.logs = repository.NewModerationLogRepository(db)
	f.notes = repository.NewNotificationRepository(db)
	badges := notification.NewService(f.notes, f.rec, logger.Discard())
	f.pipeline = NewPipeline(f.logs, Directory{Communities: communities, Users: users}, badges, f.rec, logger.Discard())
	return f
}

func (f *fixture) logCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.ModerationLog{}).Count(&n).Error)
	return n
}

func TestRecordCommunityAction(t *testing.T) {
	f := newFixture(t)
	f.rec.SetOnline(f.owner, true)
	f.rec.SetOnline(f.mod, true)
	f.rec.SetOnline(f.member, true)

	entry, err := f.pipeline.Record(context.Background(), Entry{
		ActorID:     f.mod,
		Action:      ActionRemoveMember,
		TargetID:    f.member,
		CommunityID: &f.communityID,
		Reason:      "spam",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.logCount(t))

	created := f.rec.Named(websocket.EventModerationLogCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "room(community:"+f.communityID+")", created[0].Audience.String())
	payload := created[0].Payload.(LogCreated)
	assert.Equal(t, entry.ID, payload.LogID)
	assert.Equal(t, "remove_member", payload.Action)

	// the acting moderator gets no notification row, so only the owner's
	// count is pushed; the plain member gets nothing
	badges := f.rec.Named(websocket.EventNotificationCount)
	require.Len(t, badges, 2)
	targets := []string{badges[0].Audience.String(), badges[1].Audience.String()}
	assert.ElementsMatch(t, []string{"users(" + f.owner + ")", "users(" + f.mod + ")"}, targets)

	ownerCount, err := f.notes.CountUnread(context.Background(), f.owner)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ownerCount)
	modCount, _ := f.notes.CountUnread(context.Background(), f.mod)
	assert.Zero(t, modCount)
}

func TestOwnerWhoIsAlsoModeratorGetsOneBadge(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", f.communityID, f.owner).
		Update("role", models.MemberRoleModerator).Error)
	f.rec.SetOnline(f.owner, true)
	f.rec.SetOnline(f.mod, true)

	_, err := f.pipeline.Record(context.Background(), Entry{
		ActorID: f.admin, Action: ActionDeletePost, TargetID: f.member, CommunityID: &f.communityID,
	})
	require.NoError(t, err)

	badges := f.rec.Named(websocket.EventNotificationCount)
	require.Len(t, badges, 2)
	targets := []string{badges[0].Audience.String(), badges[1].Audience.String()}
	assert.ElementsMatch(t, []string{"users(" + f.owner + ")", "users(" + f.mod + ")"}, targets)
}

func TestRecordGlobalActionGoesToAdminDashboard(t *testing.T) {
	f := newFixture(t)
	f.rec.SetOnline(f.admin, true)

	_, err := f.pipeline.Record(context.Background(), Entry{
		ActorID: f.owner, Action: ActionReportPost, TargetID: "post-42", CommunityID: new(string),
	})
	require.NoError(t, err)

	created := f.rec.Named(websocket.EventModerationLogCreated)
	require.Len(t, created, 1)
	assert.Equal(t, "room(admin:dashboard_logs)", created[0].Audience.String())
	assert.Nil(t, created[0].Payload.(LogCreated).CommunityID)
	assert.Len(t, f.rec.Named(websocket.EventNotificationCount), 1)
}

func TestRecordRejectsMalformedInput(t *testing.T) {
	f := newFixture(t)
	bad := "not-a-uuid"

	cases := map[string]Entry{
		"actor":     {ActorID: "x", Action: ActionWarnUser, TargetID: f.member},
		"action":    {ActorID: f.mod, Action: "pin_everything", TargetID: f.member},
		"target":    {ActorID: f.mod, Action: ActionWarnUser, TargetID: "  "},
		"community": {ActorID: f.mod, Action: ActionWarnUser, TargetID: f.member, CommunityID: &bad},
		"scoped":    {ActorID: f.mod, Action: ActionWarnUser, TargetID: "post-1", CommunityID: &f.communityID},
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.pipeline.Record(context.Background(), e)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "%v", err)
		})
	}
	assert.Zero(t, f.logCount(t))
	assert.Empty(t, f.rec.Events())
}

type failingLogs struct {
	repository.ModerationLogRepository
}

func (failingLogs) Create(context.Context, *models.ModerationLog) error {
	return apperror.Internal(errors.New("disk full"))
}

func TestRecordBestEffortSwallowsFailure(t *testing.T) {
	f := newFixture(t)
	p := NewPipeline(failingLogs{}, nil, nil, f.rec, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() {
		p.RecordBestEffort(ctx, Entry{ActorID: f.mod, Action: ActionDeleteComment, TargetID: f.member, CommunityID: &f.communityID})
	})
	assert.Empty(t, f.rec.Events())
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{f.member, f.owner} {
		_, err := f.pipeline.Record(context.Background(), Entry{
			ActorID: f.mod, Action: ActionWarnUser, TargetID: target, CommunityID: &f.communityID,
		})
		require.NoError(t, err)
	}

	logs, err := f.pipeline.List(context.Background(), &f.communityID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, f.owner, logs[0].TargetID)
}
