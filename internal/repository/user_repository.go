package repository

import (
	"context"

	"civic-realtime/internal/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID string) (*models.User, error)
	RoleOf(ctx context.Context, userID string) (string, error)
	AdminIDs(ctx context.Context) ([]string, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	return translate(r.db.WithContext(ctx).Create(user).Error, "user")
}

func (r *userRepository) FindByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// RoleOf returns the persisted platform role, which may differ from the role
// baked into an older token.
func (r *userRepository) RoleOf(ctx context.Context, userID string) (string, error) {
	var roles []string
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Limit(1).Pluck("role", &roles).Error
	if err != nil {
		return "", translate(err, "user")
	}
	if len(roles) == 0 {
		return "", translate(gorm.ErrRecordNotFound, "user")
	}
	return roles[0], nil
}

func (r *userRepository) AdminIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Order("id").Pluck("id", &ids).Error
	return ids, translate(err, "user")
}
