package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxDiscountTiers bounds the tier table of a group deal. Unused slots
// stay at the (0, 0) sentinel.
const MaxDiscountTiers = 5

// DiscountTier is a participant-count threshold paired with the extra
// discount unlocked at that threshold.
type DiscountTier struct {
	MinParticipants    int `json:"min_participants"`
	DiscountPercentage int `json:"discount_percentage"`
}

// DiscountTiers is the fixed-capacity tier table, stored as JSON text.
type DiscountTiers [MaxDiscountTiers]DiscountTier

func (t DiscountTiers) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *DiscountTiers) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("cannot scan %T into DiscountTiers", value)
	}
}

// GroupDeal represents a pooled purchase with tiered discounts
type GroupDeal struct {
	ID                  uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PromotionID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"promotion_id"`
	MerchantID          uuid.UUID     `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Organizer           string        `gorm:"size:64;not null" json:"organizer"`
	TargetParticipants  int           `gorm:"not null" json:"target_participants"`
	CurrentParticipants int           `gorm:"default:0" json:"current_participants"`
	MaxParticipants     int           `gorm:"not null" json:"max_participants"`
	BasePrice           int64         `gorm:"not null" json:"base_price"`
	DiscountTiers       DiscountTiers `gorm:"type:text" json:"discount_tiers"`
	Deadline            int64         `gorm:"not null" json:"deadline"`
	IsActive            bool          `gorm:"default:true;index" json:"is_active"`
	IsFinalized         bool          `gorm:"default:false" json:"is_finalized"`
	EscrowHolder        string        `gorm:"size:64;not null" json:"escrow_holder"`
	TotalEscrowed       int64         `gorm:"default:0" json:"total_escrowed"`
	FinalDiscount       int           `gorm:"default:0" json:"final_discount"` // captured at finalize
	FinalizedAt         int64         `gorm:"default:0" json:"finalized_at"`
	CreatedAt           time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (GroupDeal) TableName() string {
	return "group_deals"
}

// CurrentDiscount returns the highest tier discount whose threshold the
// current participant count satisfies. All tiers are scanned, so tier
// order does not matter; unset sentinel slots contribute 0.
func (d *GroupDeal) CurrentDiscount() int {
	discount := 0
	for _, tier := range d.DiscountTiers {
		if d.CurrentParticipants >= tier.MinParticipants && tier.DiscountPercentage > discount {
			discount = tier.DiscountPercentage
		}
	}
	return discount
}

// CurrentPrice returns the per-participant price at the current tier,
// floor-rounded in base units.
func (d *GroupDeal) CurrentPrice() int64 {
	discount := int64(d.CurrentDiscount())
	discountAmount := (d.BasePrice * discount) / 100
	if discountAmount > d.BasePrice {
		return 0
	}
	return d.BasePrice - discountAmount
}

// IsTargetReached reports whether the deal hit its minimum participants
func (d *GroupDeal) IsTargetReached() bool {
	return d.CurrentParticipants >= d.TargetParticipants
}

// IsExpired reports whether the join deadline has passed
func (d *GroupDeal) IsExpired(currentTime int64) bool {
	return currentTime > d.Deadline
}

// GroupParticipant records one user's escrowed membership in a deal
type GroupParticipant struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	GroupDealID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_deal_user" json:"group_deal_id"`
	User           string     `gorm:"size:64;not null;uniqueIndex:idx_deal_user" json:"user"`
	AmountEscrowed int64      `gorm:"not null" json:"amount_escrowed"`
	JoinedAt       int64      `gorm:"not null" json:"joined_at"`
	IsRefunded     bool       `gorm:"default:false" json:"is_refunded"`
	CouponMinted   *uuid.UUID `gorm:"type:uuid" json:"coupon_minted,omitempty"`
}

func (GroupParticipant) TableName() string {
	return "group_participants"
}

// CreateGroupDealRequest creates a group deal under a promotion
type CreateGroupDealRequest struct {
	PromotionID        string         `json:"promotion_id" binding:"required"`
	TargetParticipants int            `json:"target_participants" binding:"required"`
	MaxParticipants    int            `json:"max_participants" binding:"required"`
	BasePrice          int64          `json:"base_price" binding:"required,gt=0"`
	DiscountTiers      []DiscountTier `json:"discount_tiers"`
	DurationSeconds    int64          `json:"duration_seconds" binding:"required"`
}

// RefundGroupDealRequest refunds a participant of a failed deal
type RefundGroupDealRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

// MintParticipantCouponRequest mints the coupon owed to a participant
type MintParticipantCouponRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}
