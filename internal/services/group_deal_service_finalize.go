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

// FinalizeGroupDeal settles a deal that reached its target: escrow is
// split between merchant and marketplace, supply counters advance, and
// the active discount is captured on the deal for participant minting.
// Available any time after the target is met, deadline or not.
func (gs *GroupDealService) FinalizeGroupDeal(
	ctx context.Context,
	dealID uuid.UUID,
) (*models.GroupDeal, error) {
	now := gs.now().Unix()
	var deal *models.GroupDeal

	err := gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		var err error
		deal, err = repo.GetGroupDealForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to get group deal: %w", err)
		}
		if !deal.IsActive {
			return ErrDealInactive
		}
		if deal.IsFinalized {
			return ErrAlreadyFinalized
		}
		if !deal.IsTargetReached() {
			return ErrTargetNotReached
		}

		marketplace, err := repo.GetMarketplace(ctx)
		if err != nil {
			return fmt.Errorf("failed to get marketplace config: %w", err)
		}

		merchantPayment, marketplaceFee, err := SplitFee(deal.TotalEscrowed, marketplace.FeeBasisPoints)
		if err != nil {
			return err
		}

		merchant, err := repo.GetMerchantForUpdate(ctx, deal.MerchantID)
		if err != nil {
			return fmt.Errorf("failed to get merchant: %w", err)
		}

		if merchantPayment > 0 {
			if err := ledger.Transfer(tx, deal.EscrowHolder, merchant.Authority, merchantPayment); err != nil {
				return fmt.Errorf("failed to pay merchant: %w", err)
			}
		}
		if marketplaceFee > 0 {
			if err := ledger.Transfer(tx, deal.EscrowHolder, marketplace.Authority, marketplaceFee); err != nil {
				return fmt.Errorf("failed to pay marketplace fee: %w", err)
			}
		}

		promotion, err := repo.GetPromotionForUpdate(ctx, deal.PromotionID)
		if err != nil {
			return fmt.Errorf("failed to get promotion: %w", err)
		}
		promotion.CurrentSupply += deal.CurrentParticipants
		if err := repo.UpdatePromotion(ctx, promotion); err != nil {
			return fmt.Errorf("failed to update promotion supply: %w", err)
		}

		merchant.TotalCouponsCreated += int64(deal.CurrentParticipants)
		if err := repo.UpdateMerchant(ctx, merchant); err != nil {
			return fmt.Errorf("failed to update merchant stats: %w", err)
		}

		deal.IsFinalized = true
		deal.FinalizedAt = now
		deal.FinalDiscount = deal.CurrentDiscount()
		if err := repo.UpdateGroupDeal(ctx, deal); err != nil {
			return fmt.Errorf("failed to finalize group deal: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventGroupDealFinalized, deal.ID.String(), map[string]interface{}{
			"group_deal":         deal.ID,
			"participants_count": deal.CurrentParticipants,
			"final_discount":     deal.FinalDiscount,
			"total_revenue":      merchantPayment,
			"finalized_at":       now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[FinalizeGroupDeal] Deal %s finalized with %d participants at %d%% discount",
		dealID, deal.CurrentParticipants, deal.FinalDiscount)

	return deal, nil
}

// RefundGroupDeal returns a participant's escrow after a deal misses
// its target past the deadline. Each participant is refunded exactly
// once; a second call is a replay failure.
func (gs *GroupDealService) RefundGroupDeal(
	ctx context.Context,
	dealID uuid.UUID,
	participantID uuid.UUID,
) error {
	now := gs.now().Unix()

	err := gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		deal, err := repo.GetGroupDealForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to get group deal: %w", err)
		}
		if !deal.IsExpired(now) {
			return ErrDealNotExpired
		}
		if deal.IsTargetReached() {
			return ErrTargetReached
		}
		if deal.IsFinalized {
			return ErrAlreadyFinalized
		}

		participant, err := repo.GetGroupParticipantForUpdate(ctx, participantID)
		if err != nil {
			return fmt.Errorf("failed to get participant: %w", err)
		}
		if participant.GroupDealID != deal.ID {
			return fmt.Errorf("participant %s does not belong to deal %s", participantID, dealID)
		}
		if participant.IsRefunded {
			return ErrAlreadyRefunded
		}

		if err := ledger.Transfer(tx, deal.EscrowHolder, participant.User, participant.AmountEscrowed); err != nil {
			return fmt.Errorf("failed to refund participant: %w", err)
		}

		participant.IsRefunded = true
		if err := repo.UpdateGroupParticipant(ctx, participant); err != nil {
			return fmt.Errorf("failed to update participant: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventGroupDealRefunded, deal.ID.String(), map[string]interface{}{
			"group_deal":    deal.ID,
			"user":          participant.User,
			"refund_amount": participant.AmountEscrowed,
			"timestamp":     now,
		})
	})
	if err != nil {
		return err
	}

	log.Printf("[RefundGroupDeal] Participant %s refunded from deal %s", participantID, dealID)

	return nil
}

// MintParticipantCoupon mints the coupon owed to a participant of a
// finalized deal. The coupon's discount is the promotion discount plus
// the tier discount captured at finalize; a second mint is rejected.
func (gs *GroupDealService) MintParticipantCoupon(
	ctx context.Context,
	dealID uuid.UUID,
	participantID uuid.UUID,
) (*models.Coupon, error) {
	var coupon *models.Coupon

	err := gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		deal, err := repo.GetGroupDealByID(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to get group deal: %w", err)
		}
		if !deal.IsFinalized {
			return ErrDealNotFinalized
		}

		participant, err := repo.GetGroupParticipantForUpdate(ctx, participantID)
		if err != nil {
			return fmt.Errorf("failed to get participant: %w", err)
		}
		if participant.GroupDealID != deal.ID {
			return fmt.Errorf("participant %s does not belong to deal %s", participantID, dealID)
		}
		if participant.CouponMinted != nil {
			return ErrAlreadyMinted
		}

		promotion, err := repo.GetPromotionByID(ctx, deal.PromotionID)
		if err != nil {
			return fmt.Errorf("failed to get promotion: %w", err)
		}

		couponID := uuid.New()
		coupon = &models.Coupon{
			ID:                 couponID,
			PromotionID:        promotion.ID,
			MerchantID:         promotion.MerchantID,
			Owner:              participant.User,
			CustodyHolder:      participant.User,
			Mint:               ledger.DeriveHolder(ledger.KindCouponMint, couponID.String(), 0),
			DiscountPercentage: promotion.DiscountPercentage + deal.FinalDiscount,
			ExpiryTimestamp:    promotion.ExpiryTimestamp,
			MetadataURI:        "https://example.com/group-coupon.json",
		}
		if err := repo.CreateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to mint coupon: %w", err)
		}

		participant.CouponMinted = &coupon.ID
		return repo.UpdateGroupParticipant(ctx, participant)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MintParticipantCoupon] Coupon %s minted for %s at %d%% discount",
		coupon.ID, coupon.Owner, coupon.DiscountPercentage)

	return coupon, nil
}
