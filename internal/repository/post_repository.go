package repository

import (
	"context"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, postID string) (*models.Post, error)
	Update(ctx context.Context, postID, title, content string) error
	Delete(ctx context.Context, postID string) error
	Vote(ctx context.Context, postID, userID, optionID string) ([]models.PollOption, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post together with its poll options.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return translate(r.db.WithContext(ctx).Create(post).Error, "post")
}

func (r *postRepository) FindByID(ctx context.Context, postID string) (*models.Post, error) {
	var p models.Post
	err := r.db.WithContext(ctx).
		Preload("PollOptions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Where("id = ?", postID).
		First(&p).Error
	if err != nil {
		return nil, translate(err, "post")
	}
	return &p, nil
}

func (r *postRepository) Update(ctx context.Context, postID, title, content string) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]any{"title": title, "content": content})
	if res.Error != nil {
		return translate(res.Error, "post")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "post")
	}
	return nil
}

// Delete removes the post and everything hanging off it.
func (r *postRepository) Delete(ctx context.Context, postID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PollVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PollOption{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", postID).Delete(&models.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "post")
}

// Vote records one vote per user per post. The counter is incremented in
// SQL so concurrent voters never lose an update.
func (r *postRepository) Vote(ctx context.Context, postID, userID, optionID string) ([]models.PollOption, error) {
	var options []models.PollOption
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.PollOption{}).Where("id = ? AND post_id = ?", optionID, postID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperror.NotFound("poll option not found")
		}

		vote := models.PollVote{PostID: postID, UserID: userID, OptionID: optionID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&vote)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.Invalid("already voted on this poll")
		}

		if err := tx.Model(&models.PollOption{}).Where("id = ?", optionID).
			UpdateColumn("votes", gorm.Expr("votes + ?", 1)).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", postID).Order("created_at, id").Find(&options).Error
	})
	if err != nil {
		if apperror.KindOf(err) != apperror.KindInternal {
			return nil, err
		}
		return nil, translate(err, "poll vote")
	}
	return options, nil
}
