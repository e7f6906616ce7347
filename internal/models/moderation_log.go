package models

import "time"

// ModerationLog is an append-only audit entry. A nil CommunityID marks a
// platform-level action.
type ModerationLog struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"logId"`
	CommunityID *string   `gorm:"type:varchar(36);index" json:"communityId"`
	ModeratorID string    `gorm:"type:varchar(36);not null;index" json:"moderatorId"`
	Action      string    `gorm:"not null;size:32;index" json:"action"`
	TargetID    string    `gorm:"not null;size:64" json:"targetId"`
	Reason      string    `gorm:"type:text" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;index" json:"createdAt"`
}

type CreateModerationLogRequest struct {
	Action      string  `json:"action" binding:"required"`
	TargetID    string  `json:"targetId" binding:"required,max=64"`
	CommunityID *string `json:"communityId" binding:"omitempty,uuid"`
	Reason      string  `json:"reason" binding:"max=1000"`
}

// AllModels lists every entity for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&Follow{},
		&Community{},
		&CommunityMember{},
		&MembershipRequest{},
		&Invitation{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&Post{},
		&PollOption{},
		&PollVote{},
		&Comment{},
		&CommentLike{},
		&Notification{},
		&ModerationLog{},
	}
}
