package models

/** --------------------ENTITIES-------------------- */

// Post belongs to a community when CommunityID is set, otherwise to the
// global feed.
type Post struct {
	Base
	AuthorID    string       `gorm:"type:varchar(36);not null;index" json:"authorId"`
	CommunityID *string      `gorm:"type:varchar(36);index" json:"communityId"`
	Title       string       `gorm:"not null;size:255" json:"title"`
	Content     string       `gorm:"type:text" json:"content"`
	PollOptions []PollOption `gorm:"foreignKey:PostID" json:"pollOptions,omitempty"`
}

type PollOption struct {
	Base
	PostID string `gorm:"type:varchar(36);not null;index" json:"postId"`
	Label  string `gorm:"not null;size:255" json:"label"`
	Votes  int64  `gorm:"not null;default:0" json:"votes"`
}

// PollVote enforces one vote per user per post.
type PollVote struct {
	Base
	PostID   string `gorm:"type:varchar(36);not null;uniqueIndex:uk_post_voter" json:"postId"`
	UserID   string `gorm:"type:varchar(36);not null;uniqueIndex:uk_post_voter" json:"userId"`
	OptionID string `gorm:"type:varchar(36);not null" json:"optionId"`
}

type Comment struct {
	Base
	PostID   string  `gorm:"type:varchar(36);not null;index" json:"postId"`
	AuthorID string  `gorm:"type:varchar(36);not null" json:"authorId"`
	ParentID *string `gorm:"type:varchar(36);index" json:"parentId"`
	Content  string  `gorm:"type:text;not null" json:"content"`
	Likes    int64   `gorm:"not null;default:0" json:"likes"`
}

type CommentLike struct {
	Base
	CommentID string `gorm:"type:varchar(36);not null;uniqueIndex:uk_comment_user" json:"commentId"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:uk_comment_user" json:"userId"`
}

/** -------------------- DTOs -------------------- */

type CreatePostRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Content     string   `json:"content" binding:"max=20000"`
	CommunityID *string  `json:"communityId" binding:"omitempty,uuid"`
	PollOptions []string `json:"pollOptions" binding:"omitempty,max=10,dive,required,max=255"`
}

type UpdatePostRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content" binding:"max=20000"`
}

type VoteRequest struct {
	OptionID string `json:"optionId" binding:"required,uuid"`
}

type ReportPostRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}
