package repository

import (
	"context"

	"coupon-platform/internal/models"

	"github.com/google/uuid"
)

// CreateMerchant creates a new merchant
func (r *Repository) CreateMerchant(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Create(merchant).Error
}

// GetMerchantByID retrieves a merchant by ID
func (r *Repository) GetMerchantByID(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// GetMerchantByAuthority retrieves a merchant by its authority wallet
func (r *Repository) GetMerchantByAuthority(ctx context.Context, authority string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := r.db.WithContext(ctx).Where("authority = ?", authority).First(&merchant).Error
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}

// GetMerchantForUpdate loads a merchant under a row lock
func (r *Repository) GetMerchantForUpdate(ctx context.Context, id uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := lockForUpdate(ctx, r.db, &merchant, id); err != nil {
		return nil, err
	}
	return &merchant, nil
}

// UpdateMerchant saves a merchant
func (r *Repository) UpdateMerchant(ctx context.Context, merchant *models.Merchant) error {
	return r.db.WithContext(ctx).Save(merchant).Error
}

// CreatePromotion creates a new promotion
func (r *Repository) CreatePromotion(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

// GetPromotionByID retrieves a promotion by ID
func (r *Repository) GetPromotionByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promotion models.Promotion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&promotion).Error
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

// GetPromotionForUpdate loads a promotion under a row lock
func (r *Repository) GetPromotionForUpdate(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := lockForUpdate(ctx, r.db, &promotion, id); err != nil {
		return nil, err
	}
	return &promotion, nil
}

// UpdatePromotion saves a promotion
func (r *Repository) UpdatePromotion(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Save(promotion).Error
}

// ListPromotions lists active promotions, newest first
func (r *Repository) ListPromotions(ctx context.Context, limit, offset int) ([]*models.Promotion, error) {
	var promotions []*models.Promotion
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&promotions).Error
	if err != nil {
		return nil, err
	}
	return promotions, nil
}

// CreateCoupon creates a new coupon
func (r *Repository) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// GetCouponByID retrieves a coupon by ID
func (r *Repository) GetCouponByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetCouponForUpdate loads a coupon under a row lock
func (r *Repository) GetCouponForUpdate(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := lockForUpdate(ctx, r.db, &coupon, id); err != nil {
		return nil, err
	}
	return &coupon, nil
}

// UpdateCoupon saves a coupon
func (r *Repository) UpdateCoupon(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Save(coupon).Error
}

// GetCouponsByOwner lists coupons owned by a wallet, newest first
func (r *Repository) GetCouponsByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.Coupon, error) {
	var coupons []*models.Coupon
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&coupons).Error
	if err != nil {
		return nil, err
	}
	return coupons, nil
}
