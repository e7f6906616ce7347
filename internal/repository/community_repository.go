package repository

import (
	"context"

	"civic-realtime/internal/models"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	FindByID(ctx context.Context, communityID string) (*models.Community, error)
	UpdateStatus(ctx context.Context, communityID, status string) error
	IsMember(ctx context.Context, userID, communityID string) (bool, error)
	IsCommunityAdmin(ctx context.Context, userID, communityID string) (bool, error)
	AdminIDs(ctx context.Context, communityID string) ([]string, error)
	MemberIDs(ctx context.Context, communityID string) ([]string, error)
	ApprovedCommunityIDsForUser(ctx context.Context, userID string) ([]string, error)
	AddMember(ctx context.Context, communityID, userID, role string) error
	RemoveMember(ctx context.Context, communityID, userID string) error
}

type communityRepository struct {
	db *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

// Create stores a pending community and its owner membership in one
// transaction.
func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	if community.Status == "" {
		community.Status = models.CommunityPending
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		owner := models.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.OwnerID,
			Role:        models.MemberRoleOwner,
		}
		return tx.Create(&owner).Error
	})
	return translate(err, "community")
}

func (r *communityRepository) FindByID(ctx context.Context, communityID string) (*models.Community, error) {
	var c models.Community
	if err := r.db.WithContext(ctx).Where("id = ?", communityID).First(&c).Error; err != nil {
		return nil, translate(err, "community")
	}
	return &c, nil
}

func (r *communityRepository) UpdateStatus(ctx context.Context, communityID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Community{}).
		Where("id = ?", communityID).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error, "community")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "community")
	}
	return nil
}

func (r *communityRepository) IsMember(ctx context.Context, userID, communityID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "community member")
	}
	if count > 0 {
		return true, nil
	}
	return r.isOwner(ctx, userID, communityID)
}

// IsCommunityAdmin is true for the owner and for moderators.
func (r *communityRepository) IsCommunityAdmin(ctx context.Context, userID, communityID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ? AND role IN ?", communityID, userID,
			[]string{models.MemberRoleOwner, models.MemberRoleModerator}).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "community member")
	}
	if count > 0 {
		return true, nil
	}
	return r.isOwner(ctx, userID, communityID)
}

func (r *communityRepository) isOwner(ctx context.Context, userID, communityID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Community{}).
		Where("id = ? AND owner_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, translate(err, "community")
}

// AdminIDs returns owners and moderators, each user once.
func (r *communityRepository) AdminIDs(ctx context.Context, communityID string) ([]string, error) {
	community, err := r.FindByID(ctx, communityID)
	if err != nil {
		return nil, err
	}

	var members []models.CommunityMember
	err = r.db.WithContext(ctx).
		Where("community_id = ? AND role IN ?", communityID,
			[]string{models.MemberRoleOwner, models.MemberRoleModerator}).
		Order("created_at").
		Find(&members).Error
	if err != nil {
		return nil, translate(err, "community member")
	}

	owners := []string{community.OwnerID}
	var moderators []string
	for _, m := range members {
		if m.Role == models.MemberRoleOwner {
			owners = append(owners, m.UserID)
		} else {
			moderators = append(moderators, m.UserID)
		}
	}
	return lo.Union(owners, moderators), nil
}

func (r *communityRepository) MemberIDs(ctx context.Context, communityID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).
		Order("created_at").
		Pluck("user_id", &ids).Error
	return ids, translate(err, "community member")
}

// ApprovedCommunityIDsForUser lists approved communities the user belongs
// to in any role.
func (r *communityRepository) ApprovedCommunityIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Community{}).
		Distinct("communities.id").
		Joins("LEFT JOIN community_members cm ON cm.community_id = communities.id AND cm.user_id = ?", userID).
		Where("communities.status = ?", models.CommunityApproved).
		Where("cm.user_id IS NOT NULL OR communities.owner_id = ?", userID).
		Order("communities.id").
		Pluck("communities.id", &ids).Error
	return ids, translate(err, "community")
}

func (r *communityRepository) AddMember(ctx context.Context, communityID, userID, role string) error {
	if role == "" {
		role = models.MemberRoleMember
	}
	member := models.CommunityMember{CommunityID: communityID, UserID: userID, Role: role}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	return translate(err, "community member")
}

func (r *communityRepository) RemoveMember(ctx context.Context, communityID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityMember{})
	if res.Error != nil {
		return translate(res.Error, "community member")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "community member")
	}
	return nil
}
