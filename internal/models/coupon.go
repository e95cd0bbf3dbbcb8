package models

import (
	"time"

	"github.com/google/uuid"
)

// Coupon represents a redeemable discount coupon
type Coupon struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PromotionID        uuid.UUID `gorm:"type:uuid;not null;index" json:"promotion_id"`
	MerchantID         uuid.UUID `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Owner              string    `gorm:"size:64;not null;index" json:"owner"`
	CustodyHolder      string    `gorm:"size:64;not null" json:"custody_holder"` // differs from Owner while staked
	Mint               string    `gorm:"size:64;uniqueIndex;not null" json:"mint"`
	DiscountPercentage int       `gorm:"not null" json:"discount_percentage"`
	ExpiryTimestamp    int64     `gorm:"not null" json:"expiry_timestamp"`
	IsRedeemed         bool      `gorm:"default:false" json:"is_redeemed"`
	RedeemedAt         int64     `gorm:"default:0" json:"redeemed_at"`
	MetadataURI        string    `gorm:"size:200" json:"metadata_uri"`
	CreatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}

// IsExpired reports whether the coupon expired at the given time
func (c *Coupon) IsExpired(currentTime int64) bool {
	return c.ExpiryTimestamp <= currentTime
}

// IsStaked reports whether custody is held away from the owner
func (c *Coupon) IsStaked() bool {
	return c.CustodyHolder != c.Owner
}

// MintCouponRequest mints a coupon from a promotion to the caller
type MintCouponRequest struct {
	PromotionID string `json:"promotion_id" binding:"required"`
}

// TransferCouponRequest moves coupon ownership to another wallet
type TransferCouponRequest struct {
	NewOwner string `json:"new_owner" binding:"required"`
}
