package services

import (
	"context"
	"fmt"
	"log"

	"coupon-platform/internal/models"
	"coupon-platform/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CancelAuction closes an auction before any bid arrives. Only the
// seller may cancel, and only while the bid count is zero, so there is
// never any escrow to unwind.
func (as *AuctionService) CancelAuction(
	ctx context.Context,
	caller string,
	auctionID uuid.UUID,
) error {
	now := as.now().Unix()

	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		auction, err := repo.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("failed to get auction: %w", err)
		}
		if !auction.IsActive {
			return ErrAuctionInactive
		}
		if auction.BidCount > 0 {
			return ErrCancelledBids
		}
		if auction.Seller != caller {
			return ErrNotSeller
		}

		reason := "cancelled by seller"
		auction.IsActive = false
		auction.CancelReason = &reason
		if err := repo.UpdateAuction(ctx, auction); err != nil {
			return fmt.Errorf("failed to cancel auction: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventAuctionCancelled, auction.ID.String(), map[string]interface{}{
			"auction":   auction.ID,
			"reason":    reason,
			"timestamp": now,
		})
	})
	if err != nil {
		return err
	}

	log.Printf("[CancelAuction] Auction %s cancelled by seller %s", auctionID, caller)

	return nil
}
