package services

import (
	"context"
	"fmt"
	"log"

	"coupon-platform/internal/ledger"
	"coupon-platform/internal/models"
	"coupon-platform/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BuyDescendingAuction settles a descending auction at its current
// interpolated price. The buyer pays seller and marketplace directly;
// coupon ownership moves to the buyer and the auction is finalized.
func (as *AuctionService) BuyDescendingAuction(
	ctx context.Context,
	buyer string,
	auctionID uuid.UUID,
) (*models.Auction, error) {
	now := as.now().Unix()
	var auction *models.Auction

	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		var err error
		auction, err = repo.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("failed to get auction: %w", err)
		}
		if !auction.IsActive {
			return ErrAuctionInactive
		}
		if auction.Kind != models.AuctionKindDescending {
			return ErrInvalidKind
		}
		if auction.IsExpired(now) {
			return ErrAuctionEnded
		}

		currentPrice := auction.DescendingPrice(now)

		marketplace, err := repo.GetMarketplace(ctx)
		if err != nil {
			return fmt.Errorf("failed to get marketplace config: %w", err)
		}

		sellerAmount, marketplaceFee, err := SplitFee(currentPrice, marketplace.FeeBasisPoints)
		if err != nil {
			return err
		}

		// Pay seller and marketplace directly from the buyer
		if sellerAmount > 0 {
			if err := ledger.Transfer(tx, buyer, auction.Seller, sellerAmount); err != nil {
				return fmt.Errorf("failed to pay seller: %w", err)
			}
		}
		if marketplaceFee > 0 {
			if err := ledger.Transfer(tx, buyer, marketplace.Authority, marketplaceFee); err != nil {
				return fmt.Errorf("failed to pay marketplace fee: %w", err)
			}
		}

		// Transfer coupon ownership
		coupon, err := repo.GetCouponForUpdate(ctx, auction.CouponID)
		if err != nil {
			return fmt.Errorf("failed to get coupon: %w", err)
		}
		coupon.Owner = buyer
		coupon.CustodyHolder = buyer
		if err := repo.UpdateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to transfer coupon: %w", err)
		}

		auction.IsActive = false
		auction.IsFinalized = true
		auction.CurrentBid = currentPrice
		auction.HighestBidder = &buyer
		if err := repo.UpdateAuction(ctx, auction); err != nil {
			return fmt.Errorf("failed to finalize auction: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventAuctionFinalized, auction.ID.String(), map[string]interface{}{
			"auction":      auction.ID,
			"winner":       buyer,
			"final_price":  currentPrice,
			"kind":         auction.Kind,
			"finalized_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[BuyDescendingAuction] Auction %s bought by %s at %d", auctionID, buyer, auction.CurrentBid)

	return auction, nil
}

// FinalizeAuction settles an ascending or sealed-bid auction after its
// end time (or early, when called by the marketplace authority). Sealed
// bids are revealed here: the highest bid wins and every losing bid is
// refunded. If the reserve is not met, the highest bidder is refunded
// and the auction closes with no sale.
func (as *AuctionService) FinalizeAuction(
	ctx context.Context,
	caller string,
	auctionID uuid.UUID,
) (*models.Auction, error) {
	now := as.now().Unix()
	var auction *models.Auction

	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		var err error
		auction, err = repo.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("failed to get auction: %w", err)
		}
		if !auction.IsActive {
			return ErrAuctionInactive
		}
		if auction.IsFinalized {
			return ErrAlreadyFinalized
		}
		if auction.Kind == models.AuctionKindDescending {
			return ErrInvalidKind
		}

		marketplace, err := repo.GetMarketplace(ctx)
		if err != nil {
			return fmt.Errorf("failed to get marketplace config: %w", err)
		}

		// Early close is an authority-only capability
		if !auction.IsExpired(now) && caller != marketplace.Authority {
			return ErrAuctionNotEnded
		}

		// Reveal sealed bids: highest amount wins, earliest on ties;
		// every losing bid is refunded from escrow.
		if auction.Kind == models.AuctionKindSealedBid && auction.BidCount > 0 {
			if err := as.revealSealedBids(ctx, repo, tx, auction); err != nil {
				return err
			}
		}

		// No bids: nothing escrowed, close without a sale
		if auction.HighestBidder == nil {
			return as.closeUnsold(ctx, repo, auction, "no bids", now)
		}

		// Reserve not met: refund the highest bidder and close
		if auction.CurrentBid < auction.ReservePrice {
			if auction.CurrentBid > 0 {
				if err := ledger.Transfer(tx, auction.EscrowHolder, *auction.HighestBidder, auction.CurrentBid); err != nil {
					return fmt.Errorf("failed to refund highest bidder: %w", err)
				}
				if winning, err := repo.GetWinningBid(ctx, auction.ID); err == nil {
					winning.IsRefunded = true
					if err := repo.UpdateBid(ctx, winning); err != nil {
						return fmt.Errorf("failed to update winning bid: %w", err)
					}
				}
				log.Printf("[FinalizeAuction] Reserve not met, refunded %s: %d", *auction.HighestBidder, auction.CurrentBid)
			}
			return as.closeUnsold(ctx, repo, auction, "reserve not met", now)
		}

		// Reserve met: pay out from escrow and transfer the coupon
		winner := *auction.HighestBidder
		finalPrice := auction.CurrentBid

		sellerAmount, marketplaceFee, err := SplitFee(finalPrice, marketplace.FeeBasisPoints)
		if err != nil {
			return err
		}

		if sellerAmount > 0 {
			if err := ledger.Transfer(tx, auction.EscrowHolder, auction.Seller, sellerAmount); err != nil {
				return fmt.Errorf("failed to pay seller: %w", err)
			}
		}
		if marketplaceFee > 0 {
			if err := ledger.Transfer(tx, auction.EscrowHolder, marketplace.Authority, marketplaceFee); err != nil {
				return fmt.Errorf("failed to pay marketplace fee: %w", err)
			}
		}

		coupon, err := repo.GetCouponForUpdate(ctx, auction.CouponID)
		if err != nil {
			return fmt.Errorf("failed to get coupon: %w", err)
		}
		coupon.Owner = winner
		coupon.CustodyHolder = winner
		if err := repo.UpdateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to transfer coupon: %w", err)
		}

		auction.IsActive = false
		auction.IsFinalized = true
		if err := repo.UpdateAuction(ctx, auction); err != nil {
			return fmt.Errorf("failed to finalize auction: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventAuctionFinalized, auction.ID.String(), map[string]interface{}{
			"auction":      auction.ID,
			"winner":       winner,
			"final_price":  finalPrice,
			"kind":         auction.Kind,
			"finalized_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[FinalizeAuction] Auction %s finalized", auctionID)

	return auction, nil
}

// revealSealedBids resolves the sealed-bid winner from the immutable
// bid records and refunds everyone else.
func (as *AuctionService) revealSealedBids(
	ctx context.Context,
	repo *repository.Repository,
	tx *gorm.DB,
	auction *models.Auction,
) error {
	bids, err := repo.GetAuctionBids(ctx, auction.ID)
	if err != nil {
		return fmt.Errorf("failed to load sealed bids: %w", err)
	}

	var winning *models.Bid
	for _, bid := range bids {
		if winning == nil || bid.Amount > winning.Amount {
			winning = bid
		}
	}
	if winning == nil {
		return nil
	}

	for _, bid := range bids {
		if bid.ID == winning.ID {
			continue
		}
		if err := ledger.Transfer(tx, auction.EscrowHolder, bid.Bidder, bid.Amount); err != nil {
			return fmt.Errorf("failed to refund sealed bid: %w", err)
		}
		bid.IsRefunded = true
		if err := repo.UpdateBid(ctx, bid); err != nil {
			return fmt.Errorf("failed to update refunded bid: %w", err)
		}
	}

	winning.IsWinning = true
	if err := repo.UpdateBid(ctx, winning); err != nil {
		return fmt.Errorf("failed to update winning bid: %w", err)
	}

	auction.CurrentBid = winning.Amount
	auction.HighestBidder = &winning.Bidder

	log.Printf("[FinalizeAuction] Sealed bids revealed: %d bids, winner %s at %d",
		len(bids), winning.Bidder, winning.Amount)

	return nil
}

func (as *AuctionService) closeUnsold(
	ctx context.Context,
	repo *repository.Repository,
	auction *models.Auction,
	reason string,
	now int64,
) error {
	auction.IsActive = false
	auction.IsFinalized = true
	auction.CancelReason = &reason
	if err := repo.UpdateAuction(ctx, auction); err != nil {
		return fmt.Errorf("failed to close auction: %w", err)
	}

	return repo.EmitEvent(ctx, models.EventAuctionCancelled, auction.ID.String(), map[string]interface{}{
		"auction":   auction.ID,
		"reason":    reason,
		"timestamp": now,
	})
}
