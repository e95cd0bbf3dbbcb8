package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"coupon-platform/internal/ledger"
	"coupon-platform/internal/models"
	"coupon-platform/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuctionService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuctionService(db *gorm.DB) *AuctionService {
	return &AuctionService{
		db:  db,
		now: time.Now,
	}
}

// CreateAuction creates an auction for a coupon the seller owns.
func (as *AuctionService) CreateAuction(
	ctx context.Context,
	seller string,
	req *models.CreateAuctionRequest,
) (*models.Auction, error) {
	kind := models.AuctionKind(req.Kind)
	switch kind {
	case models.AuctionKindAscending, models.AuctionKindDescending, models.AuctionKindSealedBid:
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidKind, req.Kind)
	}

	if req.StartingPrice <= 0 || req.ReservePrice <= 0 {
		return nil, ErrInvalidPrice
	}
	if req.DurationSeconds < models.AuctionMinDuration || req.DurationSeconds > models.AuctionMaxDuration {
		return nil, ErrInvalidExpiry
	}

	switch kind {
	case models.AuctionKindAscending:
		if req.ReservePrice > req.StartingPrice {
			return nil, ErrInvalidPrice
		}
	case models.AuctionKindDescending:
		if req.ReservePrice >= req.StartingPrice {
			return nil, ErrInvalidPrice
		}
	case models.AuctionKindSealedBid:
		if req.MinBidIncrement <= 0 {
			return nil, ErrInvalidPrice
		}
	}

	couponID, err := uuid.Parse(req.CouponID)
	if err != nil {
		return nil, fmt.Errorf("invalid coupon id: %w", err)
	}

	now := as.now().Unix()
	var auction *models.Auction

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		coupon, err := repo.GetCouponForUpdate(ctx, couponID)
		if err != nil {
			return fmt.Errorf("failed to get coupon: %w", err)
		}
		if coupon.Owner != seller {
			return ErrNotOwner
		}
		if coupon.IsRedeemed {
			return ErrCouponRedeemed
		}
		if coupon.IsExpired(now) {
			return ErrCouponExpired
		}
		if coupon.IsStaked() {
			return ErrCouponStaked
		}

		auctionID := uuid.New()

		currentBid := int64(0)
		if kind == models.AuctionKindAscending {
			currentBid = req.StartingPrice
		}

		auction = &models.Auction{
			ID:               auctionID,
			CouponID:         coupon.ID,
			Seller:           seller,
			Kind:             kind,
			StartTime:        now,
			EndTime:          now + req.DurationSeconds,
			StartingPrice:    req.StartingPrice,
			ReservePrice:     req.ReservePrice,
			CurrentBid:       currentBid,
			BidCount:         0,
			IsActive:         true,
			IsFinalized:      false,
			AutoExtend:       req.AutoExtend,
			ExtensionSeconds: models.AuctionExtensionSeconds,
			MinBidIncrement:  req.MinBidIncrement,
			EscrowHolder:     ledger.DeriveHolder(ledger.KindAuctionEscrow, auctionID.String(), 0),
		}

		if err := repo.CreateAuction(ctx, auction); err != nil {
			return fmt.Errorf("failed to create auction: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventAuctionCreated, auction.ID.String(), map[string]interface{}{
			"auction":        auction.ID,
			"coupon":         coupon.ID,
			"seller":         seller,
			"kind":           kind,
			"starting_price": req.StartingPrice,
			"reserve_price":  req.ReservePrice,
			"end_time":       auction.EndTime,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CreateAuction] Auction %s created by %s (%s, %ds)", auction.ID, seller, kind, req.DurationSeconds)

	return auction, nil
}

// PlaceBid places a bid on an ascending or sealed-bid auction. The bid
// amount is escrowed; on an ascending auction the previous highest
// bidder is refunded in the same transaction.
func (as *AuctionService) PlaceBid(
	ctx context.Context,
	bidder string,
	auctionID uuid.UUID,
	amount int64,
) (*models.Bid, error) {
	if amount <= 0 {
		return nil, ErrInvalidPrice
	}

	now := as.now().Unix()
	var bid *models.Bid

	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		auction, err := repo.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("failed to get auction: %w", err)
		}
		if !auction.IsActive {
			return ErrAuctionInactive
		}
		if auction.Kind == models.AuctionKindDescending {
			return ErrInvalidKind
		}
		if auction.IsExpired(now) {
			return ErrAuctionEnded
		}

		switch auction.Kind {
		case models.AuctionKindAscending:
			minBid := auction.CurrentBid + auction.MinBidIncrement
			if amount < minBid {
				return fmt.Errorf("%w: bid %d below minimum %d", ErrInvalidPrice, amount, minBid)
			}
		case models.AuctionKindSealedBid:
			if amount < auction.StartingPrice {
				return fmt.Errorf("%w: bid %d below starting price %d", ErrInvalidPrice, amount, auction.StartingPrice)
			}
		}

		// Escrow the bid
		if err := ledger.Transfer(tx, bidder, auction.EscrowHolder, amount); err != nil {
			return fmt.Errorf("failed to escrow bid: %w", err)
		}

		// For ascending auctions, refund the previous highest bidder
		if auction.Kind == models.AuctionKindAscending {
			if auction.HighestBidder != nil && auction.CurrentBid > 0 {
				if err := ledger.Transfer(tx, auction.EscrowHolder, *auction.HighestBidder, auction.CurrentBid); err != nil {
					return fmt.Errorf("failed to refund previous bidder: %w", err)
				}

				prevBid, err := repo.GetWinningBid(ctx, auction.ID)
				if err == nil {
					prevBid.IsWinning = false
					prevBid.IsRefunded = true
					if err := repo.UpdateBid(ctx, prevBid); err != nil {
						return fmt.Errorf("failed to update previous bid: %w", err)
					}
				}

				log.Printf("[PlaceBid] Refunded previous bidder %s: %d", *auction.HighestBidder, auction.CurrentBid)
			}

			auction.CurrentBid = amount
			auction.HighestBidder = &bidder
		}

		bid = &models.Bid{
			ID:         uuid.New(),
			AuctionID:  auction.ID,
			Bidder:     bidder,
			Sequence:   auction.BidCount,
			Amount:     amount,
			Timestamp:  now,
			IsWinning:  auction.Kind == models.AuctionKindAscending,
			IsRefunded: false,
		}
		if err := repo.CreateBid(ctx, bid); err != nil {
			return fmt.Errorf("failed to create bid: %w", err)
		}

		auction.BidCount++

		// Auto-extend if enabled and near end
		if auction.ShouldExtend(now) {
			auction.EndTime += auction.ExtensionSeconds
			log.Printf("[PlaceBid] Auction %s extended by %d seconds", auction.ID, auction.ExtensionSeconds)
		}

		if err := repo.UpdateAuction(ctx, auction); err != nil {
			return fmt.Errorf("failed to update auction: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventBidPlaced, auction.ID.String(), map[string]interface{}{
			"auction":      auction.ID,
			"bidder":       bidder,
			"amount":       amount,
			"bid_count":    auction.BidCount,
			"new_end_time": auction.EndTime,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[PlaceBid] Bid of %d placed on auction %s by %s", amount, auctionID, bidder)

	return bid, nil
}

// GetAuction retrieves an auction by ID
func (as *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	return repository.NewRepository(as.db).GetAuctionByID(ctx, auctionID)
}

// ListActiveAuctions lists active auctions
func (as *AuctionService) ListActiveAuctions(ctx context.Context, limit, offset int) ([]*models.Auction, error) {
	return repository.NewRepository(as.db).ListActiveAuctions(ctx, limit, offset)
}

// CurrentDescendingPrice quotes the live descending price of an auction
func (as *AuctionService) CurrentDescendingPrice(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	auction, err := repository.NewRepository(as.db).GetAuctionByID(ctx, auctionID)
	if err != nil {
		return 0, fmt.Errorf("failed to get auction: %w", err)
	}
	if auction.Kind != models.AuctionKindDescending {
		return 0, ErrInvalidKind
	}
	return auction.DescendingPrice(as.now().Unix()), nil
}
