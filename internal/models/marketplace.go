package models

import (
	"time"

	"github.com/google/uuid"
)

// Marketplace is the singleton fee/authority configuration
type Marketplace struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Authority      string    `gorm:"size:64;not null" json:"authority"`
	TotalCoupons   int64     `gorm:"default:0" json:"total_coupons"`
	TotalMerchants int64     `gorm:"default:0" json:"total_merchants"`
	FeeBasisPoints int64     `gorm:"not null" json:"fee_basis_points"` // 10000 = 100%
	CreatedAt      time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Marketplace) TableName() string {
	return "marketplace"
}

// Merchant represents a registered merchant
type Merchant struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Authority            string    `gorm:"size:64;uniqueIndex;not null" json:"authority"`
	Name                 string    `gorm:"size:50;not null" json:"name"`
	Category             string    `gorm:"size:30" json:"category"`
	TotalCouponsCreated  int64     `gorm:"default:0" json:"total_coupons_created"`
	TotalCouponsRedeemed int64     `gorm:"default:0" json:"total_coupons_redeemed"`
	IsActive             bool      `gorm:"default:true" json:"is_active"`
	CreatedAt            time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Merchant) TableName() string {
	return "merchants"
}

// Promotion represents a merchant's coupon promotion
type Promotion struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	MerchantID         uuid.UUID `gorm:"type:uuid;not null;index" json:"merchant_id"`
	DiscountPercentage int       `gorm:"not null" json:"discount_percentage"`
	MaxSupply          int       `gorm:"not null" json:"max_supply"`
	CurrentSupply      int       `gorm:"default:0" json:"current_supply"`
	ExpiryTimestamp    int64     `gorm:"not null" json:"expiry_timestamp"`
	Category           string    `gorm:"size:30" json:"category"`
	Description        string    `gorm:"size:200" json:"description"`
	Price              int64     `gorm:"not null" json:"price"` // base units (lamports)
	IsActive           bool      `gorm:"default:true" json:"is_active"`
	CreatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Promotion) TableName() string {
	return "promotions"
}

// InitializeMarketplaceRequest configures the singleton marketplace
type InitializeMarketplaceRequest struct {
	FeeBasisPoints int64 `json:"fee_basis_points" binding:"gte=0"`
}

// RegisterMerchantRequest registers the caller as a merchant
type RegisterMerchantRequest struct {
	Name     string `json:"name" binding:"required"`
	Category string `json:"category"`
}

// CreatePromotionRequest creates a promotion under the caller's merchant
type CreatePromotionRequest struct {
	DiscountPercentage int    `json:"discount_percentage" binding:"required"`
	MaxSupply          int    `json:"max_supply" binding:"required,gt=0"`
	ExpiryTimestamp    int64  `json:"expiry_timestamp" binding:"required"`
	Category           string `json:"category"`
	Description        string `json:"description"`
	Price              int64  `json:"price" binding:"required,gt=0"`
}
