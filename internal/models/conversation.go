package models

import "time"

// Conversation types
const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

/** --------------------ENTITIES-------------------- */

type Conversation struct {
	Base
	Type string `gorm:"not null;size:16" json:"type"`
	Name string `json:"name,omitempty"`
}

type ConversationParticipant struct {
	Base
	ConversationID string `gorm:"type:varchar(36);not null;uniqueIndex:uk_conversation_user" json:"conversationId"`
	UserID         string `gorm:"type:varchar(36);not null;uniqueIndex:uk_conversation_user;index" json:"userId"`
}

type Message struct {
	Base
	ConversationID string     `gorm:"type:varchar(36);not null;index" json:"conversationId"`
	SenderID       string     `gorm:"type:varchar(36);not null" json:"senderId"`
	Text           string     `gorm:"type:text" json:"text"`
	Attachments    StringList `gorm:"type:text" json:"attachments"`
	EditedAt       *time.Time `json:"editedAt,omitempty"`
}
