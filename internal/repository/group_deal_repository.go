package repository

import (
	"context"

	"coupon-platform/internal/models"

	"github.com/google/uuid"
)

// CreateGroupDeal creates a new group deal
func (r *Repository) CreateGroupDeal(ctx context.Context, deal *models.GroupDeal) error {
	return r.db.WithContext(ctx).Create(deal).Error
}

// GetGroupDealByID retrieves a group deal by ID
func (r *Repository) GetGroupDealByID(ctx context.Context, id uuid.UUID) (*models.GroupDeal, error) {
	var deal models.GroupDeal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&deal).Error
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// GetGroupDealForUpdate loads a deal under a row lock so concurrent
// joins serialize.
func (r *Repository) GetGroupDealForUpdate(ctx context.Context, id uuid.UUID) (*models.GroupDeal, error) {
	var deal models.GroupDeal
	if err := lockForUpdate(ctx, r.db, &deal, id); err != nil {
		return nil, err
	}
	return &deal, nil
}

// UpdateGroupDeal saves a group deal
func (r *Repository) UpdateGroupDeal(ctx context.Context, deal *models.GroupDeal) error {
	return r.db.WithContext(ctx).Save(deal).Error
}

// ListActiveGroupDeals lists active deals, newest first
func (r *Repository) ListActiveGroupDeals(ctx context.Context, limit, offset int) ([]*models.GroupDeal, error) {
	var deals []*models.GroupDeal
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&deals).Error
	if err != nil {
		return nil, err
	}
	return deals, nil
}

// CreateGroupParticipant creates a participant record
func (r *Repository) CreateGroupParticipant(ctx context.Context, participant *models.GroupParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

// GetGroupParticipantByID retrieves a participant by ID
func (r *Repository) GetGroupParticipantByID(ctx context.Context, id uuid.UUID) (*models.GroupParticipant, error) {
	var participant models.GroupParticipant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// GetGroupParticipantForUpdate loads a participant under a row lock
func (r *Repository) GetGroupParticipantForUpdate(ctx context.Context, id uuid.UUID) (*models.GroupParticipant, error) {
	var participant models.GroupParticipant
	if err := lockForUpdate(ctx, r.db, &participant, id); err != nil {
		return nil, err
	}
	return &participant, nil
}

// GetGroupParticipantByUser retrieves a user's participant record in a deal
func (r *Repository) GetGroupParticipantByUser(ctx context.Context, dealID uuid.UUID, user string) (*models.GroupParticipant, error) {
	var participant models.GroupParticipant
	err := r.db.WithContext(ctx).
		Where("group_deal_id = ? AND \"user\" = ?", dealID, user).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// UpdateGroupParticipant saves a participant
func (r *Repository) UpdateGroupParticipant(ctx context.Context, participant *models.GroupParticipant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

// GetGroupParticipants lists participants of a deal in join order
func (r *Repository) GetGroupParticipants(ctx context.Context, dealID uuid.UUID) ([]*models.GroupParticipant, error) {
	var participants []*models.GroupParticipant
	err := r.db.WithContext(ctx).
		Where("group_deal_id = ?", dealID).
		Order("joined_at ASC").
		Find(&participants).Error
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// SumEscrowedByDeal totals participant escrow for an invariant check
func (r *Repository) SumEscrowedByDeal(ctx context.Context, dealID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.GroupParticipant{}).
		Where("group_deal_id = ?", dealID).
		Select("COALESCE(SUM(amount_escrowed), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
