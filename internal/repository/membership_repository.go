package repository

import (
	"context"

	"civic-realtime/internal/apperror"
	"civic-realtime/internal/models"

	"gorm.io/gorm"
)

// MembershipRepository stores join requests and invitations. Decisions only
// apply to pending rows so a request cannot be decided twice.
type MembershipRepository interface {
	CreateRequest(ctx context.Context, req *models.MembershipRequest) error
	FindRequest(ctx context.Context, requestID string) (*models.MembershipRequest, error)
	DecideRequest(ctx context.Context, requestID, status string) error
	CreateInvitation(ctx context.Context, inv *models.Invitation) error
	FindInvitation(ctx context.Context, invitationID string) (*models.Invitation, error)
	RespondInvitation(ctx context.Context, invitationID, status string) error
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) CreateRequest(ctx context.Context, req *models.MembershipRequest) error {
	var pending int64
	err := r.db.WithContext(ctx).Model(&models.MembershipRequest{}).
		Where("community_id = ? AND user_id = ? AND status = ?", req.CommunityID, req.UserID, models.RequestPending).
		Count(&pending).Error
	if err != nil {
		return translate(err, "membership request")
	}
	if pending > 0 {
		return apperror.Invalid("membership request already pending")
	}
	req.Status = models.RequestPending
	return translate(r.db.WithContext(ctx).Create(req).Error, "membership request")
}

func (r *membershipRepository) FindRequest(ctx context.Context, requestID string) (*models.MembershipRequest, error) {
	var req models.MembershipRequest
	if err := r.db.WithContext(ctx).Where("id = ?", requestID).First(&req).Error; err != nil {
		return nil, translate(err, "membership request")
	}
	return &req, nil
}

func (r *membershipRepository) DecideRequest(ctx context.Context, requestID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.MembershipRequest{}).
		Where("id = ? AND status = ?", requestID, models.RequestPending).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error, "membership request")
	}
	if res.RowsAffected == 0 {
		return apperror.Invalid("membership request already decided")
	}
	return nil
}

func (r *membershipRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	inv.Status = models.InvitationPending
	return translate(r.db.WithContext(ctx).Create(inv).Error, "invitation")
}

func (r *membershipRepository) FindInvitation(ctx context.Context, invitationID string) (*models.Invitation, error) {
	var inv models.Invitation
	if err := r.db.WithContext(ctx).Where("id = ?", invitationID).First(&inv).Error; err != nil {
		return nil, translate(err, "invitation")
	}
	return &inv, nil
}

func (r *membershipRepository) RespondInvitation(ctx context.Context, invitationID, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", invitationID, models.InvitationPending).
		Update("status", status)
	if res.Error != nil {
		return translate(res.Error, "invitation")
	}
	if res.RowsAffected == 0 {
		return apperror.Invalid("invitation already answered")
	}
	return nil
}
