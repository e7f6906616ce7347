package authz

import (
	"context"
	"sync"
	"testing"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/auth"
	"civic-realtime/internal/models"

	"github.com/stretchr/testify/assert"
)

const (
	alice     = "11111111-1111-4111-8111-111111111111"
	bob       = "22222222-2222-4222-8222-222222222222"
	community = "33333333-3333-4333-8333-333333333333"
	convo     = "44444444-4444-4444-8444-444444444444"
)

type fakeResolver struct {
	mu           sync.Mutex
	participants map[string][]string
	members      map[string]bool
	admins       map[string]bool
	roles        map[string]string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		participants: map[string][]string{},
		members:      map[string]bool{},
		admins:       map[string]bool{},
		roles:        map[string]string{},
	}
}

func (f *fakeResolver) ParticipantsOf(_ context.Context, _, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, apperror.NotFound("conversation not found")
	}
	return p, nil
}

func (f *fakeResolver) IsMember(_ context.Context, userID, communityID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[userID+"/"+communityID], nil
}

func (f *fakeResolver) IsCommunityAdmin(_ context.Context, userID, communityID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admins[userID+"/"+communityID], nil
}

func (f *fakeResolver) RoleOf(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.roles[userID]; ok {
		return r, nil
	}
	return "", apperror.NotFound("user not found")
}

func TestMembershipRevokedMidSession(t *testing.T) {
	res := newFakeResolver()
	res.members[alice+"/"+community] = true
	az := NewAuthorizer(res)
	ctx := context.Background()
	id := auth.Identity{UserID: alice, Role: models.RoleUser}

	assert.NoError(t, az.CanJoinCommunity(ctx, id, community))

	res.mu.Lock()
	delete(res.members, alice+"/"+community)
	res.mu.Unlock()

	err := az.Authorize(ctx, id, Resource{Kind: ResourceCommunity, ID: community}, ActionJoin)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))
	assert.Equal(t, MsgJoinCommunity, apperror.PublicMessage(err))
}

func TestModeratorMayJoinWithoutMemberRow(t *testing.T) {
	res := newFakeResolver()
	res.admins[bob+"/"+community] = true
	az := NewAuthorizer(res)

	assert.NoError(t, az.CanJoinCommunity(context.Background(), auth.Identity{UserID: bob}, community))
}

func TestParticipation(t *testing.T) {
	res := newFakeResolver()
	res.participants[convo] = []string{alice}
	az := NewAuthorizer(res)
	ctx := context.Background()

	assert.NoError(t, az.CanParticipate(ctx, auth.Identity{UserID: alice}, "direct", convo))

	err := az.CanParticipate(ctx, auth.Identity{UserID: bob}, "direct", convo)
	assert.True(t, apperror.Is(err, apperror.KindAuthorization))

	err = az.CanParticipate(ctx, auth.Identity{UserID: alice}, "direct", bob)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = az.CanParticipate(ctx, auth.Identity{UserID: alice}, "direct", "not-a-uuid")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAdminNeedsPersistedRole(t *testing.T) {
	res := newFakeResolver()
	az := NewAuthorizer(res)
	ctx := context.Background()
	claimsAdmin := auth.Identity{UserID: alice, Role: models.RoleAdmin}

	res.roles[alice] = models.RoleUser
	assert.True(t, apperror.Is(az.RequireAdmin(ctx, claimsAdmin), apperror.KindAuthorization))

	res.roles[alice] = models.RoleAdmin
	assert.NoError(t, az.RequireAdmin(ctx, claimsAdmin))
	assert.NoError(t, az.CanModerate(ctx, claimsAdmin, nil))

	res.roles[bob] = models.RoleAdmin
	assert.Error(t, az.RequireAdmin(ctx, auth.Identity{UserID: bob, Role: models.RoleUser}))
}

func TestCanModerate(t *testing.T) {
	res := newFakeResolver()
	res.admins[bob+"/"+community] = true
	az := NewAuthorizer(res)
	ctx := context.Background()
	c := community

	assert.NoError(t, az.CanModerate(ctx, auth.Identity{UserID: bob}, &c))
	assert.True(t, apperror.Is(az.CanModerate(ctx, auth.Identity{UserID: alice}, &c), apperror.KindAuthorization))
	assert.True(t, apperror.Is(az.CanModerate(ctx, auth.Identity{UserID: bob}, nil), apperror.KindAuthorization))
}

func TestUnsupportedCombination(t *testing.T) {
	az := NewAuthorizer(newFakeResolver())
	err := az.Authorize(context.Background(), auth.Identity{UserID: alice}, Resource{Kind: ResourcePlatform}, ActionJoin)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAuthorizeModerationScope(t *testing.T) {
	res := newFakeResolver()
	res.admins[bob+"/"+community] = true
	res.roles[alice] = models.RoleAdmin
	az := NewAuthorizer(res)
	ctx := context.Background()
	c := community

	assert.Equal(t, Community(community), Scope(&c))
	assert.Equal(t, Platform(), Scope(nil))

	assert.NoError(t, az.Authorize(ctx, auth.Identity{UserID: bob}, Scope(&c), ActionModerate))
	err := az.Authorize(ctx, auth.Identity{UserID: bob}, Scope(nil), ActionModerate)
	assert.Equal(t, MsgAdminOnly, apperror.PublicMessage(err))
	assert.NoError(t, az.Authorize(ctx, auth.Identity{UserID: alice, Role: models.RoleAdmin}, Scope(nil), ActionModerate))
}
