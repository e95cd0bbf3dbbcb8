package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"coupon-platform/internal/models"
)

const baseTime = int64(1_700_000_000)

func newAuctionService(db *gorm.DB, clock *fixedClock) *AuctionService {
	svc := NewAuctionService(db)
	svc.now = clock.Now
	return svc
}

func createTestAuction(t *testing.T, svc *AuctionService, db *gorm.DB, seller string, req *models.CreateAuctionRequest) *models.Auction {
	t.Helper()

	promotionID := seedMarketplace(t, db, 250)
	couponID := seedCoupon(t, db, promotionID, seller)
	req.CouponID = couponID.String()

	auction, err := svc.CreateAuction(context.Background(), seller, req)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}
	return auction
}

func TestCreateAuctionValidation(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	promotionID := seedMarketplace(t, db, 250)
	couponID := seedCoupon(t, db, promotionID, "seller")

	base := models.CreateAuctionRequest{
		CouponID:        couponID.String(),
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    500,
		DurationSeconds: 3600,
		MinBidIncrement: 50,
	}

	tests := []struct {
		name    string
		mutate  func(r *models.CreateAuctionRequest)
		wantErr error
	}{
		{"unknown kind", func(r *models.CreateAuctionRequest) { r.Kind = "BLIND" }, ErrInvalidKind},
		{"duration too short", func(r *models.CreateAuctionRequest) { r.DurationSeconds = 299 }, ErrInvalidExpiry},
		{"duration too long", func(r *models.CreateAuctionRequest) { r.DurationSeconds = 604801 }, ErrInvalidExpiry},
		{"ascending reserve above start", func(r *models.CreateAuctionRequest) { r.ReservePrice = 1001 }, ErrInvalidPrice},
		{"descending reserve equals start", func(r *models.CreateAuctionRequest) {
			r.Kind = string(models.AuctionKindDescending)
			r.ReservePrice = 1000
		}, ErrInvalidPrice},
		{"sealed bid without increment", func(r *models.CreateAuctionRequest) {
			r.Kind = string(models.AuctionKindSealedBid)
			r.MinBidIncrement = 0
		}, ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			if _, err := svc.CreateAuction(ctx, "seller", &req); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("not the owner", func(t *testing.T) {
		req := base
		if _, err := svc.CreateAuction(ctx, "intruder", &req); !errors.Is(err, ErrNotOwner) {
			t.Errorf("got %v, want ErrNotOwner", err)
		}
	})

	t.Run("staked coupon rejected", func(t *testing.T) {
		db.Model(&TestCoupon{}).Where("id = ?", couponID).Update("custody_holder", "some-vault")
		req := base
		if _, err := svc.CreateAuction(ctx, "seller", &req); !errors.Is(err, ErrCouponStaked) {
			t.Errorf("got %v, want ErrCouponStaked", err)
		}
		db.Model(&TestCoupon{}).Where("id = ?", couponID).Update("custody_holder", "seller")
	})
}

func TestAscendingAuctionBidding(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    800,
		DurationSeconds: 3600,
		MinBidIncrement: 100,
	})

	if auction.CurrentBid != 1000 {
		t.Fatalf("ascending auction should open at starting price, got %d", auction.CurrentBid)
	}

	fundWallet(t, db, "alice", 5000)
	fundWallet(t, db, "bob", 5000)

	// Below starting price + increment
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 1050); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("under-increment bid: got %v, want ErrInvalidPrice", err)
	}

	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 1100); err != nil {
		t.Fatalf("first bid failed: %v", err)
	}
	if got := walletBalance(t, db, "alice"); got != 3900 {
		t.Errorf("alice balance after bid = %d, want 3900", got)
	}
	if got := walletBalance(t, db, auction.EscrowHolder); got != 1100 {
		t.Errorf("escrow after first bid = %d, want 1100", got)
	}

	// Bob outbids; alice is refunded in the same operation
	if _, err := svc.PlaceBid(ctx, "bob", auction.ID, 1200); err != nil {
		t.Fatalf("second bid failed: %v", err)
	}
	if got := walletBalance(t, db, "alice"); got != 5000 {
		t.Errorf("alice not refunded, balance = %d, want 5000", got)
	}
	if got := walletBalance(t, db, auction.EscrowHolder); got != 1200 {
		t.Errorf("escrow after outbid = %d, want 1200", got)
	}

	updated, err := svc.GetAuction(ctx, auction.ID)
	if err != nil {
		t.Fatalf("GetAuction failed: %v", err)
	}
	if updated.CurrentBid != 1200 || updated.HighestBidder == nil || *updated.HighestBidder != "bob" {
		t.Errorf("auction state = (%d, %v), want (1200, bob)", updated.CurrentBid, updated.HighestBidder)
	}
	if updated.BidCount != 2 {
		t.Errorf("bid count = %d, want 2", updated.BidCount)
	}

	// Alice's original bid record is marked refunded, not winning
	var aliceBid TestBid
	if err := db.Where("auction_id = ? AND bidder = ?", auction.ID, "alice").First(&aliceBid).Error; err != nil {
		t.Fatalf("failed to load alice's bid: %v", err)
	}
	if aliceBid.IsWinning || !aliceBid.IsRefunded {
		t.Errorf("alice's bid flags = (winning=%v refunded=%v), want (false true)", aliceBid.IsWinning, aliceBid.IsRefunded)
	}
}

func TestAscendingAuctionAutoExtend(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    800,
		DurationSeconds: 3600,
		MinBidIncrement: 100,
		AutoExtend:      true,
	})
	originalEnd := auction.EndTime

	fundWallet(t, db, "alice", 5000)

	// An early bid does not extend
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 1100); err != nil {
		t.Fatalf("early bid failed: %v", err)
	}
	mid, _ := svc.GetAuction(ctx, auction.ID)
	if mid.EndTime != originalEnd {
		t.Fatalf("early bid extended auction: end %d, want %d", mid.EndTime, originalEnd)
	}

	// A bid inside the extension window pushes the end time out
	clock.Advance(3600 - 100) // 100s before end
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 1200); err != nil {
		t.Fatalf("late bid failed: %v", err)
	}
	late, _ := svc.GetAuction(ctx, auction.ID)
	if late.EndTime != originalEnd+models.AuctionExtensionSeconds {
		t.Errorf("end time = %d, want %d", late.EndTime, originalEnd+models.AuctionExtensionSeconds)
	}
}

func TestAscendingFinalizePaysOut(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    1000,
		DurationSeconds: 3600,
		MinBidIncrement: 100,
	})

	fundWallet(t, db, "alice", 5000)
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 2000); err != nil {
		t.Fatalf("bid failed: %v", err)
	}

	clock.Advance(3601)
	final, err := svc.FinalizeAuction(ctx, "anyone", auction.ID)
	if err != nil {
		t.Fatalf("FinalizeAuction failed: %v", err)
	}
	if !final.IsFinalized || final.IsActive {
		t.Errorf("auction not closed: finalized=%v active=%v", final.IsFinalized, final.IsActive)
	}

	// 2000 at 250 bps: 50 fee, 1950 to the seller
	if got := walletBalance(t, db, "seller"); got != 1950 {
		t.Errorf("seller balance = %d, want 1950", got)
	}
	if got := walletBalance(t, db, testAuthority); got != 50 {
		t.Errorf("marketplace balance = %d, want 50", got)
	}
	if got := walletBalance(t, db, auction.EscrowHolder); got != 0 {
		t.Errorf("escrow not drained, balance = %d", got)
	}

	var coupon TestCoupon
	if err := db.Where("id = ?", auction.CouponID).First(&coupon).Error; err != nil {
		t.Fatalf("failed to load coupon: %v", err)
	}
	if coupon.Owner != "alice" || coupon.CustodyHolder != "alice" {
		t.Errorf("coupon did not transfer: owner=%s custody=%s", coupon.Owner, coupon.CustodyHolder)
	}

	// Settling twice is rejected
	if _, err := svc.FinalizeAuction(ctx, "anyone", auction.ID); !errors.Is(err, ErrAuctionInactive) {
		t.Errorf("double finalize: got %v, want ErrAuctionInactive", err)
	}
}

func TestFinalizeEarlyRequiresAuthority(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    1000,
		DurationSeconds: 3600,
		MinBidIncrement: 100,
	})

	if _, err := svc.FinalizeAuction(ctx, "random-wallet", auction.ID); !errors.Is(err, ErrAuctionNotEnded) {
		t.Errorf("early finalize by outsider: got %v, want ErrAuctionNotEnded", err)
	}

	// The marketplace authority can close early; with no bids the
	// auction is cancelled rather than sold.
	final, err := svc.FinalizeAuction(ctx, testAuthority, auction.ID)
	if err != nil {
		t.Fatalf("authority early close failed: %v", err)
	}
	if final.CancelReason == nil || *final.CancelReason != "no bids" {
		t.Errorf("cancel reason = %v, want %q", final.CancelReason, "no bids")
	}
}

func TestFinalizeReserveNotMet(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindSealedBid),
		StartingPrice:   1000,
		ReservePrice:    5000,
		DurationSeconds: 3600,
		MinBidIncrement: 1,
	})

	fundWallet(t, db, "alice", 5000)
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 2000); err != nil {
		t.Fatalf("bid failed: %v", err)
	}

	clock.Advance(3601)
	final, err := svc.FinalizeAuction(ctx, "anyone", auction.ID)
	if err != nil {
		t.Fatalf("FinalizeAuction failed: %v", err)
	}

	if final.CancelReason == nil || *final.CancelReason != "reserve not met" {
		t.Errorf("cancel reason = %v, want %q", final.CancelReason, "reserve not met")
	}
	if got := walletBalance(t, db, "alice"); got != 5000 {
		t.Errorf("alice not refunded, balance = %d, want 5000", got)
	}
	if got := walletBalance(t, db, "seller"); got != 0 {
		t.Errorf("seller paid despite reserve miss: %d", got)
	}

	var coupon TestCoupon
	db.Where("id = ?", auction.CouponID).First(&coupon)
	if coupon.Owner != "seller" {
		t.Errorf("coupon left the seller on a failed sale: owner=%s", coupon.Owner)
	}
}

func TestSealedBidReveal(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindSealedBid),
		StartingPrice:   1000,
		ReservePrice:    1000,
		DurationSeconds: 3600,
		MinBidIncrement: 1,
	})

	fundWallet(t, db, "alice", 5000)
	fundWallet(t, db, "bob", 5000)
	fundWallet(t, db, "carol", 5000)

	// Sealed bids are blind: amounts need not increase
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 3000); err != nil {
		t.Fatalf("alice bid failed: %v", err)
	}
	if _, err := svc.PlaceBid(ctx, "bob", auction.ID, 1500); err != nil {
		t.Fatalf("bob bid failed: %v", err)
	}
	// Carol ties alice; alice bid first and must keep the win
	if _, err := svc.PlaceBid(ctx, "carol", auction.ID, 3000); err != nil {
		t.Fatalf("carol bid failed: %v", err)
	}

	// Bids below the starting price are rejected even sealed
	if _, err := svc.PlaceBid(ctx, "bob", auction.ID, 900); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("below-start sealed bid: got %v, want ErrInvalidPrice", err)
	}

	clock.Advance(3601)
	final, err := svc.FinalizeAuction(ctx, "anyone", auction.ID)
	if err != nil {
		t.Fatalf("FinalizeAuction failed: %v", err)
	}

	if final.HighestBidder == nil || *final.HighestBidder != "alice" {
		t.Fatalf("winner = %v, want alice", final.HighestBidder)
	}
	if final.CurrentBid != 3000 {
		t.Errorf("final price = %d, want 3000", final.CurrentBid)
	}

	// Losers got their escrow back; the winner paid
	if got := walletBalance(t, db, "bob"); got != 5000 {
		t.Errorf("bob balance = %d, want 5000", got)
	}
	if got := walletBalance(t, db, "carol"); got != 5000 {
		t.Errorf("carol balance = %d, want 5000", got)
	}
	if got := walletBalance(t, db, "alice"); got != 2000 {
		t.Errorf("alice balance = %d, want 2000", got)
	}

	// 3000 at 250 bps: 75 fee, 2925 to the seller
	if got := walletBalance(t, db, "seller"); got != 2925 {
		t.Errorf("seller balance = %d, want 2925", got)
	}
	if got := walletBalance(t, db, testAuthority); got != 75 {
		t.Errorf("marketplace balance = %d, want 75", got)
	}
	if got := walletBalance(t, db, auction.EscrowHolder); got != 0 {
		t.Errorf("escrow not drained, balance = %d", got)
	}
}

func TestDescendingAuctionPriceAndBuy(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindDescending),
		StartingPrice:   1000,
		ReservePrice:    200,
		DurationSeconds: 800,
	})

	// Price falls linearly from 1000 to 200 over 800 seconds
	quotes := []struct {
		advance int64
		want    int64
	}{
		{0, 1000},
		{400, 600}, // halfway
		{399, 601},
	}
	for _, q := range quotes {
		clock.unix = baseTime + q.advance
		price, err := svc.CurrentDescendingPrice(ctx, auction.ID)
		if err != nil {
			t.Fatalf("price quote at +%ds failed: %v", q.advance, err)
		}
		if price != q.want {
			t.Errorf("price at +%ds = %d, want %d", q.advance, price, q.want)
		}
	}

	// Past the end the price clamps to the reserve
	clock.unix = baseTime + 10000
	price, _ := svc.CurrentDescendingPrice(ctx, auction.ID)
	if price != 200 {
		t.Errorf("clamped price = %d, want 200", price)
	}

	// Bidding on a descending auction is invalid
	fundWallet(t, db, "alice", 5000)
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 600); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("bid on descending: got %v, want ErrInvalidKind", err)
	}

	// Buy at the midpoint price
	clock.unix = baseTime + 400
	bought, err := svc.BuyDescendingAuction(ctx, "alice", auction.ID)
	if err != nil {
		t.Fatalf("BuyDescendingAuction failed: %v", err)
	}
	if bought.CurrentBid != 600 {
		t.Errorf("sale price = %d, want 600", bought.CurrentBid)
	}

	// 600 at 250 bps: 15 fee, 585 to the seller
	if got := walletBalance(t, db, "alice"); got != 4400 {
		t.Errorf("buyer balance = %d, want 4400", got)
	}
	if got := walletBalance(t, db, "seller"); got != 585 {
		t.Errorf("seller balance = %d, want 585", got)
	}
	if got := walletBalance(t, db, testAuthority); got != 15 {
		t.Errorf("marketplace balance = %d, want 15", got)
	}

	var coupon TestCoupon
	db.Where("id = ?", auction.CouponID).First(&coupon)
	if coupon.Owner != "alice" {
		t.Errorf("coupon owner = %s, want alice", coupon.Owner)
	}

	// A second buyer is too late
	fundWallet(t, db, "bob", 5000)
	if _, err := svc.BuyDescendingAuction(ctx, "bob", auction.ID); !errors.Is(err, ErrAuctionInactive) {
		t.Errorf("double buy: got %v, want ErrAuctionInactive", err)
	}
}

func TestCancelAuction(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    800,
		DurationSeconds: 3600,
		MinBidIncrement: 100,
	})

	if err := svc.CancelAuction(ctx, "intruder", auction.ID); !errors.Is(err, ErrNotSeller) {
		t.Errorf("cancel by outsider: got %v, want ErrNotSeller", err)
	}

	if err := svc.CancelAuction(ctx, "seller", auction.ID); err != nil {
		t.Fatalf("CancelAuction failed: %v", err)
	}

	cancelled, _ := svc.GetAuction(ctx, auction.ID)
	if cancelled.IsActive {
		t.Error("auction still active after cancel")
	}

	// Once a bid exists, cancellation is off the table
	second := createTestAuctionWithExistingMarket(t, svc, db, "seller2", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    800,
		DurationSeconds: 3600,
		MinBidIncrement: 100,
	})
	fundWallet(t, db, "alice", 5000)
	if _, err := svc.PlaceBid(ctx, "alice", second.ID, 1100); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if err := svc.CancelAuction(ctx, "seller2", second.ID); !errors.Is(err, ErrCancelledBids) {
		t.Errorf("cancel after bid: got %v, want ErrCancelledBids", err)
	}
}

// createTestAuctionWithExistingMarket creates another auction against
// the already-seeded marketplace.
func createTestAuctionWithExistingMarket(t *testing.T, svc *AuctionService, db *gorm.DB, seller string, req *models.CreateAuctionRequest) *models.Auction {
	t.Helper()

	var promotion TestPromotion
	if err := db.First(&promotion).Error; err != nil {
		t.Fatalf("no seeded promotion: %v", err)
	}
	couponID := seedCoupon(t, db, promotion.ID, seller)
	req.CouponID = couponID.String()

	auction, err := svc.CreateAuction(context.Background(), seller, req)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}
	return auction
}

func TestAuctionEventsEmitted(t *testing.T) {
	db := setupTestDB(t)
	clock := &fixedClock{unix: baseTime}
	svc := newAuctionService(db, clock)
	ctx := context.Background()

	auction := createTestAuction(t, svc, db, "seller", &models.CreateAuctionRequest{
		Kind:            string(models.AuctionKindAscending),
		StartingPrice:   1000,
		ReservePrice:    1000,
		DurationSeconds: 3600,
		MinBidIncrement: 100,
	})

	fundWallet(t, db, "alice", 5000)
	if _, err := svc.PlaceBid(ctx, "alice", auction.ID, 1500); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	clock.Advance(3601)
	if _, err := svc.FinalizeAuction(ctx, "anyone", auction.ID); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	var types []string
	if err := db.Model(&TestDomainEvent{}).
		Where("aggregate_id = ?", auction.ID.String()).
		Order("created_at ASC").
		Pluck("type", &types).Error; err != nil {
		t.Fatalf("failed to load events: %v", err)
	}

	want := []string{models.EventAuctionCreated, models.EventBidPlaced, models.EventAuctionFinalized}
	if len(types) != len(want) {
		t.Fatalf("event count = %d (%v), want %d", len(types), types, len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}
