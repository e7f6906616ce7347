package repository

import (
	"context"
	"time"

	"civic-realtime/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation, participantIDs []string) error
	ParticipantsOf(ctx context.Context, conversationType, conversationID string) ([]string, error)
	CreateMessage(ctx context.Context, message *models.Message) error
	FindMessage(ctx context.Context, messageID string) (*models.Message, error)
	UpdateMessageText(ctx context.Context, messageID, text string, editedAt time.Time) error
	DeleteMessage(ctx context.Context, messageID string) error
}

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, conversation *models.Conversation, participantIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conversation).Error; err != nil {
			return err
		}
		for _, userID := range lo.Uniq(participantIDs) {
			p := models.ConversationParticipant{ConversationID: conversation.ID, UserID: userID}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err, "conversation")
}

// ParticipantsOf reads the current participant list. An empty
// conversationType matches any type.
func (r *conversationRepository) ParticipantsOf(ctx context.Context, conversationType, conversationID string) ([]string, error) {
	q := r.db.WithContext(ctx).Where("id = ?", conversationID)
	if conversationType != "" {
		q = q.Where("type = ?", conversationType)
	}
	var conversation models.Conversation
	if err := q.First(&conversation).Error; err != nil {
		return nil, translate(err, "conversation")
	}

	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, translate(err, "conversation")
}

func (r *conversationRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	return translate(r.db.WithContext(ctx).Create(message).Error, "message")
}

func (r *conversationRepository) FindMessage(ctx context.Context, messageID string) (*models.Message, error) {
	var m models.Message
	if err := r.db.WithContext(ctx).Where("id = ?", messageID).First(&m).Error; err != nil {
		return nil, translate(err, "message")
	}
	return &m, nil
}

func (r *conversationRepository) UpdateMessageText(ctx context.Context, messageID, text string, editedAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]any{"text": text, "edited_at": editedAt})
	if res.Error != nil {
		return translate(res.Error, "message")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "message")
	}
	return nil
}

func (r *conversationRepository) DeleteMessage(ctx context.Context, messageID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", messageID).Delete(&models.Message{})
	if res.Error != nil {
		return translate(res.Error, "message")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "message")
	}
	return nil
}
