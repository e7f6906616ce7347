package repository

import (
	"context"

	"civic-realtime/internal/models"

	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, commentID string) (*models.Comment, error)
	Delete(ctx context.Context, commentID string) error
	ToggleLike(ctx context.Context, commentID, userID string) (likes int64, liked bool, err error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Create(comment).Error, "comment")
}

func (r *commentRepository) FindByID(ctx context.Context, commentID string) (*models.Comment, error) {
	var c models.Comment
	if err := r.db.WithContext(ctx).Where("id = ?", commentID).First(&c).Error; err != nil {
		return nil, translate(err, "comment")
	}
	return &c, nil
}

// Delete removes the comment, its direct replies and their likes.
func (r *commentRepository) Delete(ctx context.Context, commentID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		replyIDs := tx.Model(&models.Comment{}).Select("id").Where("parent_id = ?", commentID)
		if err := tx.Where("comment_id = ? OR comment_id IN (?)", commentID, replyIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("parent_id = ?", commentID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", commentID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "comment")
}

// ToggleLike flips the user's like and adjusts the counter in SQL.
func (r *commentRepository) ToggleLike(ctx context.Context, commentID, userID string) (int64, bool, error) {
	var (
		likes int64
		liked bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}

		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		delta := -1
		if res.RowsAffected == 0 {
			like := models.CommentLike{CommentID: commentID, UserID: userID}
			if err := tx.Create(&like).Error; err != nil {
				return err
			}
			delta = 1
			liked = true
		}

		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).
			UpdateColumn("likes", gorm.Expr("likes + ?", delta)).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id = ?", commentID).Select("likes").Scan(&likes).Error
	})
	if err != nil {
		return 0, false, translate(err, "comment")
	}
	return likes, liked, nil
}
