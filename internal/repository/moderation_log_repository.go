package repository

import (
	"context"
	"time"

	"civic-realtime/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModerationLogRepository is insert-only; there is no update or delete.
type ModerationLogRepository interface {
	Create(ctx context.Context, entry *models.ModerationLog) error
	List(ctx context.Context, communityID *string, limit int) ([]models.ModerationLog, error)
}

type moderationLogRepository struct {
	db *gorm.DB
}

func NewModerationLogRepository(db *gorm.DB) ModerationLogRepository {
	return &moderationLogRepository{db: db}
}

func (r *moderationLogRepository) Create(ctx context.Context, entry *models.ModerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return translate(r.db.WithContext(ctx).Create(entry).Error, "moderation log")
}

// List returns newest entries first. A nil communityID lists platform-level
// entries only.
func (r *moderationLogRepository) List(ctx context.Context, communityID *string, limit int) ([]models.ModerationLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit)
	if communityID != nil {
		q = q.Where("community_id = ?", *communityID)
	} else {
		q = q.Where("community_id IS NULL")
	}
	var entries []models.ModerationLog
	err := q.Find(&entries).Error
	return entries, translate(err, "moderation log")
}
