package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"coupon-platform/internal/ledger"
	"coupon-platform/internal/models"
)

// Test structs mirror the production models but drop Postgres-specific
// column defaults so SQLite can migrate them. Table names match, so
// the services and repositories run unchanged.

type TestMarketplace struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Authority      string    `gorm:"size:64;not null"`
	TotalCoupons   int64     `gorm:"default:0"`
	TotalMerchants int64     `gorm:"default:0"`
	FeeBasisPoints int64     `gorm:"not null"`
	CreatedAt      time.Time
}

func (TestMarketplace) TableName() string { return "marketplace" }

type TestMerchant struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Authority            string    `gorm:"size:64;uniqueIndex;not null"`
	Name                 string    `gorm:"size:50;not null"`
	Category             string    `gorm:"size:30"`
	TotalCouponsCreated  int64     `gorm:"default:0"`
	TotalCouponsRedeemed int64     `gorm:"default:0"`
	IsActive             bool      `gorm:"default:true"`
	CreatedAt            time.Time
}

func (TestMerchant) TableName() string { return "merchants" }

type TestPromotion struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID         uuid.UUID `gorm:"type:uuid;not null;index"`
	DiscountPercentage int       `gorm:"not null"`
	MaxSupply          int       `gorm:"not null"`
	CurrentSupply      int       `gorm:"default:0"`
	ExpiryTimestamp    int64     `gorm:"not null"`
	Category           string    `gorm:"size:30"`
	Description        string    `gorm:"size:200"`
	Price              int64     `gorm:"not null"`
	IsActive           bool      `gorm:"default:true"`
	CreatedAt          time.Time
}

func (TestPromotion) TableName() string { return "promotions" }

type TestCoupon struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	PromotionID        uuid.UUID `gorm:"type:uuid;not null;index"`
	MerchantID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Owner              string    `gorm:"size:64;not null;index"`
	CustodyHolder      string    `gorm:"size:64;not null"`
	Mint               string    `gorm:"size:64;uniqueIndex;not null"`
	DiscountPercentage int       `gorm:"not null"`
	ExpiryTimestamp    int64     `gorm:"not null"`
	IsRedeemed         bool      `gorm:"default:false"`
	RedeemedAt         int64     `gorm:"default:0"`
	MetadataURI        string    `gorm:"size:200"`
	CreatedAt          time.Time
}

func (TestCoupon) TableName() string { return "coupons" }

type TestAuction struct {
	ID               uuid.UUID          `gorm:"type:uuid;primaryKey"`
	CouponID         uuid.UUID          `gorm:"type:uuid;not null;index"`
	Seller           string             `gorm:"size:64;not null;index"`
	Kind             models.AuctionKind `gorm:"size:20;not null"`
	StartTime        int64              `gorm:"not null"`
	EndTime          int64              `gorm:"not null"`
	StartingPrice    int64              `gorm:"not null"`
	ReservePrice     int64              `gorm:"not null"`
	CurrentBid       int64              `gorm:"default:0"`
	HighestBidder    *string            `gorm:"size:64"`
	BidCount         int                `gorm:"default:0"`
	IsActive         bool               `gorm:"default:true;index"`
	IsFinalized      bool               `gorm:"default:false"`
	AutoExtend       bool               `gorm:"default:false"`
	ExtensionSeconds int64              `gorm:"not null"`
	MinBidIncrement  int64              `gorm:"not null"`
	EscrowHolder     string             `gorm:"size:64;not null"`
	CancelReason     *string            `gorm:"size:100"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (TestAuction) TableName() string { return "auctions" }

type TestBid struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	AuctionID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_auction_bidder_seq"`
	Bidder     string    `gorm:"size:64;not null;uniqueIndex:idx_auction_bidder_seq"`
	Sequence   int       `gorm:"not null;uniqueIndex:idx_auction_bidder_seq"`
	Amount     int64     `gorm:"not null"`
	Timestamp  int64     `gorm:"not null"`
	IsWinning  bool      `gorm:"default:false"`
	IsRefunded bool      `gorm:"default:false"`
}

func (TestBid) TableName() string { return "bids" }

type TestGroupDeal struct {
	ID                  uuid.UUID            `gorm:"type:uuid;primaryKey"`
	PromotionID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	MerchantID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	Organizer           string               `gorm:"size:64;not null"`
	TargetParticipants  int                  `gorm:"not null"`
	CurrentParticipants int                  `gorm:"default:0"`
	MaxParticipants     int                  `gorm:"not null"`
	BasePrice           int64                `gorm:"not null"`
	DiscountTiers       models.DiscountTiers `gorm:"type:text"`
	Deadline            int64                `gorm:"not null"`
	IsActive            bool                 `gorm:"default:true;index"`
	IsFinalized         bool                 `gorm:"default:false"`
	EscrowHolder        string               `gorm:"size:64;not null"`
	TotalEscrowed       int64                `gorm:"default:0"`
	FinalDiscount       int                  `gorm:"default:0"`
	FinalizedAt         int64                `gorm:"default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (TestGroupDeal) TableName() string { return "group_deals" }

type TestGroupParticipant struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	GroupDealID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_deal_user"`
	User           string     `gorm:"size:64;not null;uniqueIndex:idx_deal_user"`
	AmountEscrowed int64      `gorm:"not null"`
	JoinedAt       int64      `gorm:"not null"`
	IsRefunded     bool       `gorm:"default:false"`
	CouponMinted   *uuid.UUID `gorm:"type:uuid"`
}

func (TestGroupParticipant) TableName() string { return "group_participants" }

type TestStakingPool struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Authority               string    `gorm:"size:64;not null"`
	RewardHolder            string    `gorm:"size:64;not null"`
	TotalStaked             int64     `gorm:"default:0"`
	TotalRewardsDistributed int64     `gorm:"default:0"`
	RewardRatePerDay        int64     `gorm:"not null"`
	MinStakeDuration        int64     `gorm:"not null"`
	IsActive                bool      `gorm:"default:true"`
	CreatedAt               time.Time
}

func (TestStakingPool) TableName() string { return "staking_pool" }

type TestStakeAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	User          string    `gorm:"size:64;not null;index"`
	CouponID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Mint          string    `gorm:"size:64;not null"`
	VaultHolder   string    `gorm:"size:64;not null"`
	AmountStaked  int64     `gorm:"not null"`
	StakedAt      int64     `gorm:"not null"`
	UnlockAt      int64     `gorm:"not null"`
	DurationDays  int64     `gorm:"not null"`
	RewardsEarned int64     `gorm:"default:0"`
	IsActive      bool      `gorm:"default:true;index"`
	ClaimedAt     *int64
}

func (TestStakeAccount) TableName() string { return "stake_accounts" }

type TestDomainEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type        string    `gorm:"size:50;not null;index"`
	AggregateID string    `gorm:"size:64;not null;index"`
	Payload     string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
}

func (TestDomainEvent) TableName() string { return "domain_events" }

// setupTestDB opens a private in-memory database per test and migrates
// the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&ledger.Account{},
		&TestMarketplace{},
		&TestMerchant{},
		&TestPromotion{},
		&TestCoupon{},
		&TestAuction{},
		&TestBid{},
		&TestGroupDeal{},
		&TestGroupParticipant{},
		&TestStakingPool{},
		&TestStakeAccount{},
		&TestDomainEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

const (
	testAuthority = "authority-wallet"
	testMerchant  = "merchant-wallet"
	testFarFuture = int64(4102444800) // 2100-01-01
)

// seedMarketplace creates the marketplace config, a merchant and a
// promotion, and returns the promotion ID.
func seedMarketplace(t *testing.T, db *gorm.DB, feeBasisPoints int64) uuid.UUID {
	t.Helper()

	marketplace := TestMarketplace{
		ID:             uuid.New(),
		Authority:      testAuthority,
		TotalMerchants: 1,
		FeeBasisPoints: feeBasisPoints,
	}
	if err := db.Create(&marketplace).Error; err != nil {
		t.Fatalf("failed to seed marketplace: %v", err)
	}

	merchant := TestMerchant{
		ID:        uuid.New(),
		Authority: testMerchant,
		Name:      "Test Cafe",
		Category:  "food",
		IsActive:  true,
	}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("failed to seed merchant: %v", err)
	}

	promotion := TestPromotion{
		ID:                 uuid.New(),
		MerchantID:         merchant.ID,
		DiscountPercentage: 10,
		MaxSupply:          100,
		ExpiryTimestamp:    testFarFuture,
		Category:           "food",
		Price:              1000,
		IsActive:           true,
	}
	if err := db.Create(&promotion).Error; err != nil {
		t.Fatalf("failed to seed promotion: %v", err)
	}

	return promotion.ID
}

// seedCoupon creates a coupon under the seeded promotion owned by owner
func seedCoupon(t *testing.T, db *gorm.DB, promotionID uuid.UUID, owner string) uuid.UUID {
	t.Helper()

	var promotion TestPromotion
	if err := db.Where("id = ?", promotionID).First(&promotion).Error; err != nil {
		t.Fatalf("failed to load promotion: %v", err)
	}

	coupon := TestCoupon{
		ID:                 uuid.New(),
		PromotionID:        promotion.ID,
		MerchantID:         promotion.MerchantID,
		Owner:              owner,
		CustodyHolder:      owner,
		Mint:               "mint-" + uuid.NewString(),
		DiscountPercentage: promotion.DiscountPercentage,
		ExpiryTimestamp:    promotion.ExpiryTimestamp,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("failed to seed coupon: %v", err)
	}

	return coupon.ID
}

// fundWallet credits a wallet's ledger account
func fundWallet(t *testing.T, db *gorm.DB, wallet string, amount int64) {
	t.Helper()

	if err := ledger.Deposit(db, wallet, amount); err != nil {
		t.Fatalf("failed to fund wallet %s: %v", wallet, err)
	}
}

// walletBalance reads a wallet's ledger balance
func walletBalance(t *testing.T, db *gorm.DB, wallet string) int64 {
	t.Helper()

	balance, err := ledger.Balance(db, wallet)
	if err != nil {
		t.Fatalf("failed to read balance of %s: %v", wallet, err)
	}
	return balance
}

// fixedClock pins a service clock to a settable unix timestamp
type fixedClock struct {
	unix int64
}

func (c *fixedClock) Now() time.Time {
	return time.Unix(c.unix, 0)
}

func (c *fixedClock) Advance(seconds int64) {
	c.unix += seconds
}
