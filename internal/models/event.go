package models

import (
	"time"

	"github.com/google/uuid"
)

// Domain event types emitted by the engines.
const (
	EventAuctionCreated     = "AuctionCreated"
	EventBidPlaced          = "BidPlaced"
	EventAuctionFinalized   = "AuctionFinalized"
	EventAuctionCancelled   = "AuctionCancelled"
	EventGroupDealCreated   = "GroupDealCreated"
	EventGroupDealJoined    = "GroupDealJoined"
	EventGroupDealFinalized = "GroupDealFinalized"
	EventGroupDealRefunded  = "GroupDealRefunded"
	EventRewardsStaked      = "RewardsStaked"
	EventRewardsClaimed     = "RewardsClaimed"
	EventCouponMinted       = "CouponMinted"
	EventCouponRedeemed     = "CouponRedeemed"
	EventCouponTransferred  = "CouponTransferred"
)

// DomainEvent is an append-only event record written in the same
// transaction as the state change it describes.
type DomainEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Type        string    `gorm:"size:50;not null;index" json:"type"`
	AggregateID string    `gorm:"size:64;not null;index" json:"aggregate_id"`
	Payload     string    `gorm:"type:text" json:"payload"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (DomainEvent) TableName() string {
	return "domain_events"
}
