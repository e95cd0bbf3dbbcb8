package models

import (
	"time"

	"github.com/google/uuid"
)

type AuctionKind string

const (
	AuctionKindAscending  AuctionKind = "ASCENDING"  // rising bids
	AuctionKindDescending AuctionKind = "DESCENDING" // falling price over time
	AuctionKindSealedBid  AuctionKind = "SEALED_BID" // blind bids revealed at finalize
)

// Duration bounds for all auction kinds, in seconds.
const (
	AuctionMinDuration = 300    // 5 minutes
	AuctionMaxDuration = 604800 // 7 days

	// AuctionExtensionSeconds is added to the end time on a late bid
	// when auto-extend is enabled.
	AuctionExtensionSeconds = 300
)

// Auction represents a coupon auction of any kind
type Auction struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CouponID         uuid.UUID   `gorm:"type:uuid;not null;index" json:"coupon_id"`
	Seller           string      `gorm:"size:64;not null;index" json:"seller"`
	Kind             AuctionKind `gorm:"size:20;not null" json:"kind"`
	StartTime        int64       `gorm:"not null" json:"start_time"`
	EndTime          int64       `gorm:"not null" json:"end_time"`
	StartingPrice    int64       `gorm:"not null" json:"starting_price"`
	ReservePrice     int64       `gorm:"not null" json:"reserve_price"`
	CurrentBid       int64       `gorm:"default:0" json:"current_bid"`
	HighestBidder    *string     `gorm:"size:64" json:"highest_bidder"`
	BidCount         int         `gorm:"default:0" json:"bid_count"`
	IsActive         bool        `gorm:"default:true;index" json:"is_active"`
	IsFinalized      bool        `gorm:"default:false" json:"is_finalized"`
	AutoExtend       bool        `gorm:"default:false" json:"auto_extend"`
	ExtensionSeconds int64       `gorm:"not null" json:"extension_seconds"`
	MinBidIncrement  int64       `gorm:"not null" json:"min_bid_increment"`
	EscrowHolder     string      `gorm:"size:64;not null" json:"escrow_holder"`
	CancelReason     *string     `gorm:"size:100" json:"cancel_reason,omitempty"`
	CreatedAt        time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time   `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Auction) TableName() string {
	return "auctions"
}

// IsExpired reports whether bidding has ended at the given time
func (a *Auction) IsExpired(currentTime int64) bool {
	return currentTime > a.EndTime
}

// CanFinalize reports whether the auction is due for settlement
func (a *Auction) CanFinalize(currentTime int64) bool {
	return a.IsActive && !a.IsFinalized && a.IsExpired(currentTime)
}

// ShouldExtend reports whether a bid at currentTime pushes the end time out
func (a *Auction) ShouldExtend(currentTime int64) bool {
	return a.AutoExtend &&
		(a.EndTime-currentTime) < AuctionExtensionSeconds &&
		a.BidCount > 0
}

// DescendingPrice interpolates the current descending-auction price.
// Clamped to starting price before start and reserve price after end;
// in between it falls linearly with integer floor division.
func (a *Auction) DescendingPrice(currentTime int64) int64 {
	if currentTime <= a.StartTime {
		return a.StartingPrice
	}
	if currentTime >= a.EndTime {
		return a.ReservePrice
	}

	elapsed := currentTime - a.StartTime
	duration := a.EndTime - a.StartTime
	priceDrop := a.StartingPrice - a.ReservePrice

	currentDrop := (priceDrop * elapsed) / duration
	return a.StartingPrice - currentDrop
}

// Bid is an immutable record of a single bid. Repeat bids by the same
// bidder create new records, keyed by the auction's bid sequence.
type Bid struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AuctionID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_auction_bidder_seq" json:"auction_id"`
	Bidder     string    `gorm:"size:64;not null;uniqueIndex:idx_auction_bidder_seq" json:"bidder"`
	Sequence   int       `gorm:"not null;uniqueIndex:idx_auction_bidder_seq" json:"sequence"`
	Amount     int64     `gorm:"not null" json:"amount"`
	Timestamp  int64     `gorm:"not null" json:"timestamp"`
	IsWinning  bool      `gorm:"default:false" json:"is_winning"`
	IsRefunded bool      `gorm:"default:false" json:"is_refunded"`
}

func (Bid) TableName() string {
	return "bids"
}

// CreateAuctionRequest creates an auction for a coupon the caller owns
type CreateAuctionRequest struct {
	CouponID        string `json:"coupon_id" binding:"required"`
	Kind            string `json:"kind" binding:"required"`
	StartingPrice   int64  `json:"starting_price" binding:"required,gt=0"`
	ReservePrice    int64  `json:"reserve_price" binding:"required,gt=0"`
	DurationSeconds int64  `json:"duration_seconds" binding:"required"`
	AutoExtend      bool   `json:"auto_extend"`
	MinBidIncrement int64  `json:"min_bid_increment"`
}

// PlaceBidRequest places a bid on an ascending or sealed-bid auction
type PlaceBidRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}
