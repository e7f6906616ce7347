package repository

import (
	"context"

	"gorm.io/gorm"
)

// Resolver answers participant and role questions from committed state.
// Nothing is cached between calls.
type Resolver struct {
	Communities   CommunityRepository
	Conversations ConversationRepository
	Users         UserRepository
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{
		Communities:   NewCommunityRepository(db),
		Conversations: NewConversationRepository(db),
		Users:         NewUserRepository(db),
	}
}

func (r *Resolver) ParticipantsOf(ctx context.Context, conversationType, conversationID string) ([]string, error) {
	return r.Conversations.ParticipantsOf(ctx, conversationType, conversationID)
}

func (r *Resolver) IsMember(ctx context.Context, userID, communityID string) (bool, error) {
	return r.Communities.IsMember(ctx, userID, communityID)
}

func (r *Resolver) IsCommunityAdmin(ctx context.Context, userID, communityID string) (bool, error) {
	return r.Communities.IsCommunityAdmin(ctx, userID, communityID)
}

func (r *Resolver) RoleOf(ctx context.Context, userID string) (string, error) {
	return r.Users.RoleOf(ctx, userID)
}
