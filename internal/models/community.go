package models

// Community approval states
const (
	CommunityPending  = "pending"
	CommunityApproved = "approved"
	CommunityRejected = "rejected"
)

// Member roles inside a community
const (
	MemberRoleMember    = "member"
	MemberRoleModerator = "moderator"
	MemberRoleOwner     = "owner"
)

/** --------------------ENTITIES-------------------- */

type Community struct {
	Base
	Name        string `gorm:"uniqueIndex;not null;size:128" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	OwnerID     string `gorm:"type:varchar(36);not null;index" json:"ownerId"`
	Status      string `gorm:"not null;size:16;default:pending;index" json:"status"`
}

type CommunityMember struct {
	Base
	CommunityID string `gorm:"type:varchar(36);not null;uniqueIndex:uk_community_user" json:"communityId"`
	UserID      string `gorm:"type:varchar(36);not null;uniqueIndex:uk_community_user;index" json:"userId"`
	Role        string `gorm:"not null;size:16;default:member" json:"role"`
}

// Request / invitation states
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"

	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

type MembershipRequest struct {
	Base
	CommunityID string `gorm:"type:varchar(36);not null;index" json:"communityId"`
	UserID      string `gorm:"type:varchar(36);not null;index" json:"userId"`
	Status      string `gorm:"not null;size:16;default:pending" json:"status"`
}

type Invitation struct {
	Base
	CommunityID string `gorm:"type:varchar(36);not null;index" json:"communityId"`
	InviterID   string `gorm:"type:varchar(36);not null" json:"inviterId"`
	InviteeID   string `gorm:"type:varchar(36);not null;index" json:"inviteeId"`
	Status      string `gorm:"not null;size:16;default:pending" json:"status"`
}

/** -------------------- DTOs -------------------- */

type CreateCommunityRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=128"`
	Description string `json:"description" binding:"max=2000"`
}

type ReviewCommunityRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Reason   string `json:"reason" binding:"max=1000"`
}

type DecisionRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Reason   string `json:"reason" binding:"max=1000"`
}

type InviteRequest struct {
	InviteeID string `json:"inviteeId" binding:"required,uuid"`
}

type InvitationResponseRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}
