package models

/** --------------------ENTITIES-------------------- */

type Notification struct {
	Base
	RecipientID string `gorm:"type:varchar(36);not null;index:idx_notification_unread" json:"recipientId"`
	ActorID     string `gorm:"type:varchar(36);not null" json:"actorId"`
	Type        string `gorm:"not null;size:32" json:"type"`
	EntityID    string `gorm:"type:varchar(36)" json:"entityId,omitempty"`
	Read        bool   `gorm:"column:is_read;not null;default:false;index:idx_notification_unread" json:"read"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
