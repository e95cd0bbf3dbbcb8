package repository

import (
	"context"

	"coupon-platform/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

// CreateStakingPool creates the singleton staking pool
func (r *Repository) CreateStakingPool(ctx context.Context, pool *models.StakingPool) error {
	return r.db.WithContext(ctx).Create(pool).Error
}

// GetStakingPool retrieves the singleton staking pool
func (r *Repository) GetStakingPool(ctx context.Context) (*models.StakingPool, error) {
	var pool models.StakingPool
	err := r.db.WithContext(ctx).First(&pool).Error
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// GetStakingPoolForUpdate loads the pool under a row lock so stake and
// claim bookkeeping serializes.
func (r *Repository) GetStakingPoolForUpdate(ctx context.Context) (*models.StakingPool, error) {
	var pool models.StakingPool
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pool).Error
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// UpdateStakingPool saves the pool
func (r *Repository) UpdateStakingPool(ctx context.Context, pool *models.StakingPool) error {
	return r.db.WithContext(ctx).Save(pool).Error
}

// CreateStakeAccount creates a stake account
func (r *Repository) CreateStakeAccount(ctx context.Context, stake *models.StakeAccount) error {
	return r.db.WithContext(ctx).Create(stake).Error
}

// GetStakeAccountByID retrieves a stake account by ID
func (r *Repository) GetStakeAccountByID(ctx context.Context, id uuid.UUID) (*models.StakeAccount, error) {
	var stake models.StakeAccount
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&stake).Error
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

// GetStakeAccountForUpdate loads a stake account under a row lock
func (r *Repository) GetStakeAccountForUpdate(ctx context.Context, id uuid.UUID) (*models.StakeAccount, error) {
	var stake models.StakeAccount
	if err := lockForUpdate(ctx, r.db, &stake, id); err != nil {
		return nil, err
	}
	return &stake, nil
}

// GetActiveStakeByCoupon retrieves the active stake locking a coupon, if any
func (r *Repository) GetActiveStakeByCoupon(ctx context.Context, couponID uuid.UUID) (*models.StakeAccount, error) {
	var stake models.StakeAccount
	err := r.db.WithContext(ctx).
		Where("coupon_id = ? AND is_active = ?", couponID, true).
		First(&stake).Error
	if err != nil {
		return nil, err
	}
	return &stake, nil
}

// UpdateStakeAccount saves a stake account
func (r *Repository) UpdateStakeAccount(ctx context.Context, stake *models.StakeAccount) error {
	return r.db.WithContext(ctx).Save(stake).Error
}

// GetStakesByUser lists a user's stakes, newest first
func (r *Repository) GetStakesByUser(ctx context.Context, user string, limit, offset int) ([]*models.StakeAccount, error) {
	var stakes []*models.StakeAccount
	err := r.db.WithContext(ctx).
		Where("\"user\" = ?", user).
		Order("staked_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&stakes).Error
	if err != nil {
		return nil, err
	}
	return stakes, nil
}
