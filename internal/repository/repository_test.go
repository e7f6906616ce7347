package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/database/databasetest"
	"civic-realtime/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createUser(t *testing.T, db *gorm.DB, name, role string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.org", Role: role}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func createCommunity(t *testing.T, db *gorm.DB, ownerID, status string) *models.Community {
	t.Helper()
	c := &models.Community{Name: fmt.Sprintf("community-%d", time.Now().UnixNano()), OwnerID: ownerID, Status: status}
	require.NoError(t, NewCommunityRepository(db).Create(context.Background(), c))
	return c
}

func TestCommunityMembershipQueries(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewCommunityRepository(db)

	owner := createUser(t, db, "owner", models.RoleUser)
	mod := createUser(t, db, "mod", models.RoleUser)
	member := createUser(t, db, "member", models.RoleUser)
	outsider := createUser(t, db, "outsider", models.RoleUser)

	approved := createCommunity(t, db, owner.ID, models.CommunityApproved)
	pending := createCommunity(t, db, owner.ID, models.CommunityPending)

	require.NoError(t, repo.AddMember(ctx, approved.ID, mod.ID, models.MemberRoleModerator))
	require.NoError(t, repo.AddMember(ctx, approved.ID, member.ID, ""))
	// adding twice is a no-op
	require.NoError(t, repo.AddMember(ctx, approved.ID, member.ID, ""))
	require.NoError(t, repo.AddMember(ctx, pending.ID, member.ID, ""))

	ok, err := repo.IsMember(ctx, member.ID, approved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, outsider.ID, approved.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.IsCommunityAdmin(ctx, mod.ID, approved.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsCommunityAdmin(ctx, member.ID, approved.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	admins, err := repo.AdminIDs(ctx, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID, mod.ID}, admins)

	ids, err := repo.ApprovedCommunityIDsForUser(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{approved.ID}, ids)

	require.NoError(t, repo.RemoveMember(ctx, approved.ID, member.ID))
	ok, err = repo.IsMember(ctx, member.ID, approved.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommunityAdminIDsDeduplicatesOwnerWhoIsModerator(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()

	owner := createUser(t, db, "owner", models.RoleUser)
	community := createCommunity(t, db, owner.ID, models.CommunityApproved)

	// the owner is listed both as community owner and through its owner member row
	admins, err := NewCommunityRepository(db).AdminIDs(ctx, community.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{owner.ID}, admins)
}

func TestCommunityNotFound(t *testing.T) {
	db := databasetest.Open(t)

	_, err := NewCommunityRepository(db).FindByID(context.Background(), "8f14e45f-ceea-467f-a8f4-5f6e0d7d1a11")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestPollVoteIsOncePerUser(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewPostRepository(db)

	author := createUser(t, db, "author", models.RoleUser)
	voter := createUser(t, db, "voter", models.RoleUser)

	post := &models.Post{
		AuthorID:    author.ID,
		Title:       "Bike lanes on Main St",
		PollOptions: []models.PollOption{{Label: "yes"}, {Label: "no"}},
	}
	require.NoError(t, repo.Create(ctx, post))
	optionID := post.PollOptions[0].ID

	options, err := repo.Vote(ctx, post.ID, voter.ID, optionID)
	require.NoError(t, err)
	require.Len(t, options, 2)
	for _, o := range options {
		if o.ID == optionID {
			assert.EqualValues(t, 1, o.Votes)
		} else {
			assert.EqualValues(t, 0, o.Votes)
		}
	}

	_, err = repo.Vote(ctx, post.ID, voter.ID, optionID)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = repo.Vote(ctx, post.ID, author.ID, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestPostDeleteCascades(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()

	author := createUser(t, db, "author", models.RoleUser)
	post := &models.Post{AuthorID: author.ID, Title: "Library hours"}
	require.NoError(t, NewPostRepository(db).Create(ctx, post))

	comments := NewCommentRepository(db)
	c := &models.Comment{PostID: post.ID, AuthorID: author.ID, Content: "agreed"}
	require.NoError(t, comments.Create(ctx, c))
	_, _, err := comments.ToggleLike(ctx, c.ID, author.ID)
	require.NoError(t, err)

	require.NoError(t, NewPostRepository(db).Delete(ctx, post.ID))

	var remaining int64
	db.Model(&models.CommentLike{}).Count(&remaining)
	assert.Zero(t, remaining)
	_, err = comments.FindByID(ctx, c.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = NewPostRepository(db).Delete(ctx, post.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestToggleLike(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewCommentRepository(db)

	author := createUser(t, db, "author", models.RoleUser)
	fan := createUser(t, db, "fan", models.RoleUser)
	c := &models.Comment{PostID: "3c9a8d7e-0000-4000-8000-000000000001", AuthorID: author.ID, Content: "+1"}
	require.NoError(t, repo.Create(ctx, c))

	likes, liked, err := repo.ToggleLike(ctx, c.ID, fan.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, likes)
	assert.True(t, liked)

	likes, liked, err = repo.ToggleLike(ctx, c.ID, author.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, likes)
	assert.True(t, liked)

	likes, liked, err = repo.ToggleLike(ctx, c.ID, fan.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, likes)
	assert.False(t, liked)
}

func TestMembershipRequestDecidedOnce(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewMembershipRepository(db)

	owner := createUser(t, db, "owner", models.RoleUser)
	applicant := createUser(t, db, "applicant", models.RoleUser)
	community := createCommunity(t, db, owner.ID, models.CommunityApproved)

	req := &models.MembershipRequest{CommunityID: community.ID, UserID: applicant.ID}
	require.NoError(t, repo.CreateRequest(ctx, req))

	dup := &models.MembershipRequest{CommunityID: community.ID, UserID: applicant.ID}
	assert.True(t, apperror.Is(repo.CreateRequest(ctx, dup), apperror.KindValidation))

	require.NoError(t, repo.DecideRequest(ctx, req.ID, models.RequestApproved))
	assert.True(t, apperror.Is(repo.DecideRequest(ctx, req.ID, models.RequestRejected), apperror.KindValidation))

	stored, err := repo.FindRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, stored.Status)
}

func TestConversationParticipants(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewConversationRepository(db)

	a := createUser(t, db, "alice", models.RoleUser)
	b := createUser(t, db, "bob", models.RoleUser)

	conv := &models.Conversation{Type: models.ConversationDirect}
	require.NoError(t, repo.Create(ctx, conv, []string{a.ID, b.ID, a.ID}))

	ids, err := repo.ParticipantsOf(ctx, models.ConversationDirect, conv.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)

	_, err = repo.ParticipantsOf(ctx, models.ConversationGroup, conv.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	msg := &models.Message{ConversationID: conv.ID, SenderID: a.ID, Text: "hi", Attachments: models.StringList{"a.png"}}
	require.NoError(t, repo.CreateMessage(ctx, msg))
	require.NoError(t, repo.UpdateMessageText(ctx, msg.ID, "hello", time.Now()))

	stored, err := repo.FindMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Text)
	assert.Equal(t, models.StringList{"a.png"}, stored.Attachments)
	assert.NotNil(t, stored.EditedAt)

	require.NoError(t, repo.DeleteMessage(ctx, msg.ID))
	assert.True(t, apperror.Is(repo.DeleteMessage(ctx, msg.ID), apperror.KindNotFound))
}

func TestFollowIsIdempotent(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewFollowRepository(db)

	a := createUser(t, db, "alice", models.RoleUser)
	b := createUser(t, db, "bob", models.RoleUser)

	created, err := repo.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, created)

	following, err := repo.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, following)

	removed, err := repo.Unfollow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestModerationLogList(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewModerationLogRepository(db)

	communityID := "5b1f0c3e-1d2a-4c4e-9f00-0000000000aa"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, action := range []string{"delete_post", "ban_user"} {
		entry := &models.ModerationLog{
			CommunityID: &communityID,
			ModeratorID: "5b1f0c3e-1d2a-4c4e-9f00-0000000000bb",
			Action:      action,
			TargetID:    "target",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, entry))
	}
	require.NoError(t, repo.Create(ctx, &models.ModerationLog{ModeratorID: "x", Action: "approve_community", TargetID: "y"}))

	entries, err := repo.List(ctx, &communityID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ban_user", entries[0].Action)

	global, err := repo.List(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Nil(t, global[0].CommunityID)
}

func TestNotificationUnreadCount(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	repo := NewNotificationRepository(db)

	a := createUser(t, db, "alice", models.RoleUser)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Notification{RecipientID: a.ID, ActorID: "b", Type: "follow"}))
	}
	var first models.Notification
	require.NoError(t, db.Where("recipient_id = ?", a.ID).First(&first).Error)
	require.NoError(t, db.Model(&models.Notification{}).Where("id = ?", first.ID).Update("is_read", true).Error)

	count, err := repo.CountUnread(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestResolverRoleOf(t *testing.T) {
	db := databasetest.Open(t)
	ctx := context.Background()
	admin := createUser(t, db, "root", models.RoleAdmin)
	createUser(t, db, "plain", models.RoleUser)

	role, err := NewResolver(db).RoleOf(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	ids, err := NewUserRepository(db).AdminIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{admin.ID}, ids)
}
