package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gorm.io/gorm"

	"coupon-platform/internal/ledger"
	"coupon-platform/internal/models"
)

func newMarketplaceService(db *gorm.DB, clock *fixedClock) *MarketplaceService {
	svc := NewMarketplaceService(db)
	svc.now = clock.Now
	return svc
}

func TestInitializeMarketplace(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newMarketplaceService(db, clock)

	ctx := context.Background()

	if _, err := svc.InitializeMarketplace(ctx, testAuthority, 10001); !errors.Is(err, ErrInvalidFeeRate) {
		t.Errorf("fee above 10000: got %v, want ErrInvalidFeeRate", err)
	}
	if _, err := svc.InitializeMarketplace(ctx, testAuthority, -1); !errors.Is(err, ErrInvalidFeeRate) {
		t.Errorf("negative fee: got %v, want ErrInvalidFeeRate", err)
	}

	marketplace, err := svc.InitializeMarketplace(ctx, testAuthority, 250)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if marketplace.FeeBasisPoints != 250 {
		t.Errorf("fee = %d, want 250", marketplace.FeeBasisPoints)
	}

	if _, err := svc.InitializeMarketplace(ctx, testAuthority, 100); !errors.Is(err, ErrMarketplaceExists) {
		t.Errorf("second init: got %v, want ErrMarketplaceExists", err)
	}
}

func TestRegisterMerchantAndCreatePromotion(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newMarketplaceService(db, clock)

	ctx := context.Background()

	if _, err := svc.InitializeMarketplace(ctx, testAuthority, 250); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	if _, err := svc.RegisterMerchant(ctx, testMerchant, &models.RegisterMerchantRequest{
		Name: strings.Repeat("x", 51),
	}); !errors.Is(err, ErrNameTooLong) {
		t.Errorf("long name: got %v, want ErrNameTooLong", err)
	}
	if _, err := svc.RegisterMerchant(ctx, testMerchant, &models.RegisterMerchantRequest{
		Name:     "Cafe",
		Category: strings.Repeat("x", 31),
	}); !errors.Is(err, ErrCategoryTooLong) {
		t.Errorf("long category: got %v, want ErrCategoryTooLong", err)
	}

	merchant, err := svc.RegisterMerchant(ctx, testMerchant, &models.RegisterMerchantRequest{
		Name:     "Cafe",
		Category: "food",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !merchant.IsActive {
		t.Error("merchant not active")
	}

	var marketplace TestMarketplace
	if err := db.First(&marketplace).Error; err != nil {
		t.Fatalf("load marketplace: %v", err)
	}
	if marketplace.TotalMerchants != 1 {
		t.Errorf("total merchants = %d, want 1", marketplace.TotalMerchants)
	}

	valid := func() *models.CreatePromotionRequest {
		return &models.CreatePromotionRequest{
			DiscountPercentage: 10,
			MaxSupply:          50,
			ExpiryTimestamp:    baseTime + 86400,
			Price:              1000,
		}
	}

	cases := []struct {
		name    string
		mutate  func(*models.CreatePromotionRequest)
		wantErr error
	}{
		{"discount over 100", func(r *models.CreatePromotionRequest) { r.DiscountPercentage = 101 }, ErrInvalidDiscount},
		{"zero discount", func(r *models.CreatePromotionRequest) { r.DiscountPercentage = 0 }, ErrInvalidDiscount},
		{"zero supply", func(r *models.CreatePromotionRequest) { r.MaxSupply = 0 }, ErrInvalidSupply},
		{"expiry in the past", func(r *models.CreatePromotionRequest) { r.ExpiryTimestamp = baseTime }, ErrInvalidExpiry},
		{"zero price", func(r *models.CreatePromotionRequest) { r.Price = 0 }, ErrInvalidPrice},
		{"long description", func(r *models.CreatePromotionRequest) { r.Description = strings.Repeat("x", 201) }, ErrDescriptionLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid()
			tc.mutate(req)
			if _, err := svc.CreatePromotion(ctx, testMerchant, req); !errors.Is(err, tc.wantErr) {
				t.Errorf("got %v, want %v", err, tc.wantErr)
			}
		})
	}

	promotion, err := svc.CreatePromotion(ctx, testMerchant, valid())
	if err != nil {
		t.Fatalf("create promotion failed: %v", err)
	}
	if promotion.MerchantID != merchant.ID {
		t.Error("promotion not linked to merchant")
	}

	// Only a registered merchant authority can create promotions
	if _, err := svc.CreatePromotion(ctx, "stranger", valid()); err == nil {
		t.Error("unregistered authority created a promotion")
	}
}

func TestMintCoupon(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newMarketplaceService(db, clock)
	promotionID := seedMarketplace(t, db, 250)

	fundWallet(t, db, "alice", 5000)

	ctx := context.Background()

	coupon, err := svc.MintCoupon(ctx, "alice", promotionID)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if coupon.Owner != "alice" || coupon.CustodyHolder != "alice" {
		t.Errorf("owner/custody = %s/%s, want alice/alice", coupon.Owner, coupon.CustodyHolder)
	}
	if coupon.DiscountPercentage != 10 {
		t.Errorf("discount = %d, want 10 (copied from promotion)", coupon.DiscountPercentage)
	}

	// Price paid straight to the merchant authority
	if got := walletBalance(t, db, "alice"); got != 4000 {
		t.Errorf("alice balance = %d, want 4000", got)
	}
	if got := walletBalance(t, db, testMerchant); got != 1000 {
		t.Errorf("merchant balance = %d, want 1000", got)
	}

	var promotion TestPromotion
	if err := db.First(&promotion, "id = ?", promotionID).Error; err != nil {
		t.Fatalf("load promotion: %v", err)
	}
	if promotion.CurrentSupply != 1 {
		t.Errorf("supply = %d, want 1", promotion.CurrentSupply)
	}

	var marketplace TestMarketplace
	if err := db.First(&marketplace).Error; err != nil {
		t.Fatalf("load marketplace: %v", err)
	}
	if marketplace.TotalCoupons != 1 {
		t.Errorf("total coupons = %d, want 1", marketplace.TotalCoupons)
	}

	// Unfunded wallet cannot pay the promotion price
	if _, err := svc.MintCoupon(ctx, "broke", promotionID); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Errorf("unfunded mint: got %v, want ErrInsufficientFunds", err)
	}

	if err := db.Model(&TestPromotion{}).Where("id = ?", promotionID).
		Update("current_supply", 100).Error; err != nil {
		t.Fatalf("exhaust supply: %v", err)
	}
	if _, err := svc.MintCoupon(ctx, "alice", promotionID); !errors.Is(err, ErrSupplyExhausted) {
		t.Errorf("exhausted mint: got %v, want ErrSupplyExhausted", err)
	}
}

func TestRedeemCoupon(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newMarketplaceService(db, clock)
	promotionID := seedMarketplace(t, db, 250)
	couponID := seedCoupon(t, db, promotionID, "alice")

	ctx := context.Background()

	if _, err := svc.RedeemCoupon(ctx, "bob", couponID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stranger redeem: got %v, want ErrNotOwner", err)
	}

	redeemed, err := svc.RedeemCoupon(ctx, "alice", couponID)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !redeemed.IsRedeemed || redeemed.RedeemedAt != baseTime {
		t.Errorf("redeemed=%v at=%d, want true at %d", redeemed.IsRedeemed, redeemed.RedeemedAt, baseTime)
	}

	var merchant TestMerchant
	if err := db.First(&merchant, "authority = ?", testMerchant).Error; err != nil {
		t.Fatalf("load merchant: %v", err)
	}
	if merchant.TotalCouponsRedeemed != 1 {
		t.Errorf("redeemed count = %d, want 1", merchant.TotalCouponsRedeemed)
	}

	if _, err := svc.RedeemCoupon(ctx, "alice", couponID); !errors.Is(err, ErrCouponRedeemed) {
		t.Errorf("double redeem: got %v, want ErrCouponRedeemed", err)
	}

	// Staked custody blocks redemption
	stakedID := seedCoupon(t, db, promotionID, "alice")
	if err := db.Model(&TestCoupon{}).Where("id = ?", stakedID).
		Update("custody_holder", "some-vault").Error; err != nil {
		t.Fatalf("move custody: %v", err)
	}
	if _, err := svc.RedeemCoupon(ctx, "alice", stakedID); !errors.Is(err, ErrCouponStaked) {
		t.Errorf("staked redeem: got %v, want ErrCouponStaked", err)
	}

	// Expired coupons are dead
	expiredID := seedCoupon(t, db, promotionID, "alice")
	if err := db.Model(&TestCoupon{}).Where("id = ?", expiredID).
		Update("expiry_timestamp", baseTime-1).Error; err != nil {
		t.Fatalf("expire coupon: %v", err)
	}
	if _, err := svc.RedeemCoupon(ctx, "alice", expiredID); !errors.Is(err, ErrCouponExpired) {
		t.Errorf("expired redeem: got %v, want ErrCouponExpired", err)
	}
}

func TestTransferCoupon(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newMarketplaceService(db, clock)
	promotionID := seedMarketplace(t, db, 250)
	couponID := seedCoupon(t, db, promotionID, "alice")

	ctx := context.Background()

	if _, err := svc.TransferCoupon(ctx, "bob", couponID, "carol"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stranger transfer: got %v, want ErrNotOwner", err)
	}

	moved, err := svc.TransferCoupon(ctx, "alice", couponID, "bob")
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if moved.Owner != "bob" || moved.CustodyHolder != "bob" {
		t.Errorf("owner/custody = %s/%s, want bob/bob", moved.Owner, moved.CustodyHolder)
	}

	// The previous owner lost all rights
	if _, err := svc.TransferCoupon(ctx, "alice", couponID, "carol"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("stale owner transfer: got %v, want ErrNotOwner", err)
	}

	if _, err := svc.RedeemCoupon(ctx, "bob", couponID); err != nil {
		t.Fatalf("redeem after transfer failed: %v", err)
	}
	if _, err := svc.TransferCoupon(ctx, "bob", couponID, "carol"); !errors.Is(err, ErrCouponRedeemed) {
		t.Errorf("redeemed transfer: got %v, want ErrCouponRedeemed", err)
	}
}

func TestGetStats(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newMarketplaceService(db, clock)
	seedMarketplace(t, db, 250)

	fundWallet(t, db, testAuthority, 2_500_000_000)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.TotalMerchants != 1 {
		t.Errorf("merchants = %d, want 1", stats.TotalMerchants)
	}
	if got := stats.FeePercent.String(); got != "2.5" {
		t.Errorf("fee percent = %s, want 2.5", got)
	}
	if got := stats.AuthorityBalance.String(); got != "2.5" {
		t.Errorf("authority balance = %s, want 2.5", got)
	}
}
