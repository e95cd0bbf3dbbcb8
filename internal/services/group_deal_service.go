package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"coupon-platform/internal/ledger"
	"coupon-platform/internal/models"
	"coupon-platform/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	groupDealMinDuration   = 3600 // 1 hour
	groupDealMaxTierBonus  = 50   // max extra discount per tier, percent
	groupDealMinTarget     = 2
)

type GroupDealService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGroupDealService(db *gorm.DB) *GroupDealService {
	return &GroupDealService{
		db:  db,
		now: time.Now,
	}
}

// CreateGroupDeal initializes a deal under a promotion. Tier slots not
// supplied stay at the (0, 0) sentinel.
func (gs *GroupDealService) CreateGroupDeal(
	ctx context.Context,
	organizer string,
	req *models.CreateGroupDealRequest,
) (*models.GroupDeal, error) {
	if req.TargetParticipants < groupDealMinTarget {
		return nil, ErrInvalidSupply
	}
	if req.MaxParticipants < req.TargetParticipants {
		return nil, ErrInvalidSupply
	}
	if req.BasePrice <= 0 {
		return nil, ErrInvalidPrice
	}
	if req.DurationSeconds < groupDealMinDuration {
		return nil, ErrInvalidExpiry
	}
	if len(req.DiscountTiers) > models.MaxDiscountTiers {
		return nil, ErrInvalidTiers
	}

	// Tiers must be strictly ascending by threshold, each bounded
	var tiers models.DiscountTiers
	for i, tier := range req.DiscountTiers {
		if i > 0 && tier.MinParticipants <= req.DiscountTiers[i-1].MinParticipants {
			return nil, ErrInvalidTiers
		}
		if tier.DiscountPercentage < 0 || tier.DiscountPercentage > groupDealMaxTierBonus {
			return nil, ErrInvalidDiscount
		}
		tiers[i] = tier
	}

	promotionID, err := uuid.Parse(req.PromotionID)
	if err != nil {
		return nil, fmt.Errorf("invalid promotion id: %w", err)
	}

	now := gs.now().Unix()
	var deal *models.GroupDeal

	err = gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		promotion, err := repo.GetPromotionByID(ctx, promotionID)
		if err != nil {
			return fmt.Errorf("failed to get promotion: %w", err)
		}
		if req.MaxParticipants > promotion.MaxSupply {
			return ErrSupplyExhausted
		}

		merchant, err := repo.GetMerchantByID(ctx, promotion.MerchantID)
		if err != nil {
			return fmt.Errorf("failed to get merchant: %w", err)
		}

		dealID := uuid.New()

		deal = &models.GroupDeal{
			ID:                 dealID,
			PromotionID:        promotion.ID,
			MerchantID:         merchant.ID,
			Organizer:          organizer,
			TargetParticipants: req.TargetParticipants,
			MaxParticipants:    req.MaxParticipants,
			BasePrice:          req.BasePrice,
			DiscountTiers:      tiers,
			Deadline:           now + req.DurationSeconds,
			IsActive:           true,
			EscrowHolder:       ledger.DeriveHolder(ledger.KindGroupEscrow, dealID.String(), 0),
		}

		if err := repo.CreateGroupDeal(ctx, deal); err != nil {
			return fmt.Errorf("failed to create group deal: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventGroupDealCreated, deal.ID.String(), map[string]interface{}{
			"group_deal":          deal.ID,
			"promotion":           promotion.ID,
			"merchant":            merchant.ID,
			"organizer":           organizer,
			"target_participants": req.TargetParticipants,
			"base_price":          req.BasePrice,
			"deadline":            deal.Deadline,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CreateGroupDeal] Deal %s created by %s (target %d, base price %d)",
		deal.ID, organizer, req.TargetParticipants, req.BasePrice)

	return deal, nil
}

// JoinGroupDeal escrows the current tier price from the user and adds
// them as a participant. A user can join a deal at most once.
func (gs *GroupDealService) JoinGroupDeal(
	ctx context.Context,
	user string,
	dealID uuid.UUID,
) (*models.GroupParticipant, error) {
	now := gs.now().Unix()
	var participant *models.GroupParticipant

	err := gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		deal, err := repo.GetGroupDealForUpdate(ctx, dealID)
		if err != nil {
			return fmt.Errorf("failed to get group deal: %w", err)
		}
		if !deal.IsActive {
			return ErrDealInactive
		}
		if deal.IsFinalized {
			return ErrAlreadyFinalized
		}
		if deal.CurrentParticipants >= deal.MaxParticipants {
			return ErrSupplyExhausted
		}
		if deal.IsExpired(now) {
			return ErrDealExpired
		}

		if _, err := repo.GetGroupParticipantByUser(ctx, deal.ID, user); err == nil {
			return ErrAlreadyJoined
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing participant: %w", err)
		}

		currentPrice := deal.CurrentPrice()

		if err := ledger.Transfer(tx, user, deal.EscrowHolder, currentPrice); err != nil {
			return fmt.Errorf("failed to escrow payment: %w", err)
		}

		participant = &models.GroupParticipant{
			ID:             uuid.New(),
			GroupDealID:    deal.ID,
			User:           user,
			AmountEscrowed: currentPrice,
			JoinedAt:       now,
		}
		if err := repo.CreateGroupParticipant(ctx, participant); err != nil {
			return fmt.Errorf("failed to create participant: %w", err)
		}

		deal.CurrentParticipants++
		deal.TotalEscrowed += currentPrice
		if err := repo.UpdateGroupDeal(ctx, deal); err != nil {
			return fmt.Errorf("failed to update group deal: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventGroupDealJoined, deal.ID.String(), map[string]interface{}{
			"group_deal":         deal.ID,
			"user":               user,
			"participants_count": deal.CurrentParticipants,
			"amount_escrowed":    currentPrice,
			"current_discount":   deal.CurrentDiscount(),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[JoinGroupDeal] %s joined deal %s for %d", user, dealID, participant.AmountEscrowed)

	return participant, nil
}

// GetGroupDeal retrieves a group deal by ID
func (gs *GroupDealService) GetGroupDeal(ctx context.Context, dealID uuid.UUID) (*models.GroupDeal, error) {
	return repository.NewRepository(gs.db).GetGroupDealByID(ctx, dealID)
}

// ListActiveGroupDeals lists active group deals
func (gs *GroupDealService) ListActiveGroupDeals(ctx context.Context, limit, offset int) ([]*models.GroupDeal, error) {
	return repository.NewRepository(gs.db).ListActiveGroupDeals(ctx, limit, offset)
}
