package models

/** --------------------ENTITIES-------------------- */

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents the user entity. Authentication lives elsewhere; the
// realtime core only reads Role.
type User struct {
	Base
	Username string `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Email    string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `gorm:"not null;size:16;default:user;index" json:"role"`
}

// Follow is a directed follower -> followee edge.
type Follow struct {
	Base
	FollowerID string `gorm:"type:varchar(36);not null;uniqueIndex:uk_follow_pair" json:"followerId"`
	FolloweeID string `gorm:"type:varchar(36);not null;uniqueIndex:uk_follow_pair;index" json:"followeeId"`
}

/** -------------------- DTOs -------------------- */

type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

type FollowStatusResponse struct {
	UserID    string `json:"userId"`
	Following bool   `json:"following"`
}
