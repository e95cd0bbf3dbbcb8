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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	merchantNameMaxLen        = 50
	merchantCategoryMaxLen    = 30
	promotionDescriptionLimit = 200
)

// lamportsPerSol converts base units for display amounts.
var lamportsPerSol = decimal.NewFromInt(1_000_000_000)

// MarketplaceService handles registry collaborators: marketplace
// config, merchants, promotions and the coupon lifecycle outside of
// the auction/deal/staking engines.
type MarketplaceService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMarketplaceService(db *gorm.DB) *MarketplaceService {
	return &MarketplaceService{
		db:  db,
		now: time.Now,
	}
}

// InitializeMarketplace creates the singleton fee config
func (ms *MarketplaceService) InitializeMarketplace(
	ctx context.Context,
	authority string,
	feeBasisPoints int64,
) (*models.Marketplace, error) {
	if feeBasisPoints < 0 || feeBasisPoints > 10000 {
		return nil, ErrInvalidFeeRate
	}

	var marketplace *models.Marketplace

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		if _, err := repo.GetMarketplace(ctx); err == nil {
			return ErrMarketplaceExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check marketplace: %w", err)
		}

		marketplace = &models.Marketplace{
			ID:             uuid.New(),
			Authority:      authority,
			FeeBasisPoints: feeBasisPoints,
		}
		return repo.CreateMarketplace(ctx, marketplace)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[InitializeMarketplace] Marketplace initialized with %d bps fee", feeBasisPoints)

	return marketplace, nil
}

// RegisterMerchant registers the caller's wallet as a merchant
func (ms *MarketplaceService) RegisterMerchant(
	ctx context.Context,
	authority string,
	req *models.RegisterMerchantRequest,
) (*models.Merchant, error) {
	if len(req.Name) > merchantNameMaxLen {
		return nil, ErrNameTooLong
	}
	if len(req.Category) > merchantCategoryMaxLen {
		return nil, ErrCategoryTooLong
	}

	var merchant *models.Merchant

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		merchant = &models.Merchant{
			ID:        uuid.New(),
			Authority: authority,
			Name:      req.Name,
			Category:  req.Category,
			IsActive:  true,
		}
		if err := repo.CreateMerchant(ctx, merchant); err != nil {
			return fmt.Errorf("failed to register merchant: %w", err)
		}

		marketplace, err := repo.GetMarketplace(ctx)
		if err != nil {
			return fmt.Errorf("failed to get marketplace: %w", err)
		}
		marketplace.TotalMerchants++
		return repo.UpdateMarketplace(ctx, marketplace)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[RegisterMerchant] Merchant %q registered by %s", req.Name, authority)

	return merchant, nil
}

// CreatePromotion creates a promotion under the caller's merchant
func (ms *MarketplaceService) CreatePromotion(
	ctx context.Context,
	authority string,
	req *models.CreatePromotionRequest,
) (*models.Promotion, error) {
	if req.DiscountPercentage <= 0 || req.DiscountPercentage > 100 {
		return nil, ErrInvalidDiscount
	}
	if req.MaxSupply <= 0 {
		return nil, ErrInvalidSupply
	}
	if req.ExpiryTimestamp <= ms.now().Unix() {
		return nil, ErrInvalidExpiry
	}
	if req.Price <= 0 {
		return nil, ErrInvalidPrice
	}
	if len(req.Category) > merchantCategoryMaxLen {
		return nil, ErrCategoryTooLong
	}
	if len(req.Description) > promotionDescriptionLimit {
		return nil, ErrDescriptionLong
	}

	var promotion *models.Promotion

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		merchant, err := repo.GetMerchantByAuthority(ctx, authority)
		if err != nil {
			return fmt.Errorf("failed to get merchant: %w", err)
		}
		if !merchant.IsActive {
			return ErrNotMerchant
		}

		promotion = &models.Promotion{
			ID:                 uuid.New(),
			MerchantID:         merchant.ID,
			DiscountPercentage: req.DiscountPercentage,
			MaxSupply:          req.MaxSupply,
			ExpiryTimestamp:    req.ExpiryTimestamp,
			Category:           req.Category,
			Description:        req.Description,
			Price:              req.Price,
			IsActive:           true,
		}
		return repo.CreatePromotion(ctx, promotion)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CreatePromotion] Promotion %s created by merchant %s", promotion.ID, authority)

	return promotion, nil
}

// MintCoupon mints a coupon from a promotion to the caller, paying the
// promotion price to the merchant.
func (ms *MarketplaceService) MintCoupon(
	ctx context.Context,
	owner string,
	promotionID uuid.UUID,
) (*models.Coupon, error) {
	now := ms.now().Unix()
	var coupon *models.Coupon

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		promotion, err := repo.GetPromotionForUpdate(ctx, promotionID)
		if err != nil {
			return fmt.Errorf("failed to get promotion: %w", err)
		}
		if !promotion.IsActive {
			return ErrPromotionInactive
		}
		if promotion.CurrentSupply >= promotion.MaxSupply {
			return ErrSupplyExhausted
		}
		if promotion.ExpiryTimestamp <= now {
			return ErrPromotionExpired
		}

		merchant, err := repo.GetMerchantForUpdate(ctx, promotion.MerchantID)
		if err != nil {
			return fmt.Errorf("failed to get merchant: %w", err)
		}

		if err := ledger.Transfer(tx, owner, merchant.Authority, promotion.Price); err != nil {
			return fmt.Errorf("failed to pay promotion price: %w", err)
		}

		couponID := uuid.New()
		coupon = &models.Coupon{
			ID:                 couponID,
			PromotionID:        promotion.ID,
			MerchantID:         merchant.ID,
			Owner:              owner,
			CustodyHolder:      owner,
			Mint:               ledger.DeriveHolder(ledger.KindCouponMint, couponID.String(), 0),
			DiscountPercentage: promotion.DiscountPercentage,
			ExpiryTimestamp:    promotion.ExpiryTimestamp,
			MetadataURI:        "https://example.com/coupon.json",
		}
		if err := repo.CreateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to create coupon: %w", err)
		}

		promotion.CurrentSupply++
		if err := repo.UpdatePromotion(ctx, promotion); err != nil {
			return fmt.Errorf("failed to update promotion supply: %w", err)
		}

		merchant.TotalCouponsCreated++
		if err := repo.UpdateMerchant(ctx, merchant); err != nil {
			return fmt.Errorf("failed to update merchant stats: %w", err)
		}

		marketplace, err := repo.GetMarketplace(ctx)
		if err != nil {
			return fmt.Errorf("failed to get marketplace: %w", err)
		}
		marketplace.TotalCoupons++
		if err := repo.UpdateMarketplace(ctx, marketplace); err != nil {
			return fmt.Errorf("failed to update marketplace stats: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventCouponMinted, coupon.ID.String(), map[string]interface{}{
			"coupon":    coupon.ID,
			"promotion": promotion.ID,
			"owner":     owner,
			"price":     promotion.Price,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MintCoupon] Coupon %s minted to %s", coupon.ID, owner)

	return coupon, nil
}

// RedeemCoupon marks the caller's coupon redeemed, exactly once
func (ms *MarketplaceService) RedeemCoupon(
	ctx context.Context,
	caller string,
	couponID uuid.UUID,
) (*models.Coupon, error) {
	now := ms.now().Unix()
	var coupon *models.Coupon

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		var err error
		coupon, err = repo.GetCouponForUpdate(ctx, couponID)
		if err != nil {
			return fmt.Errorf("failed to get coupon: %w", err)
		}
		if coupon.IsRedeemed {
			return ErrCouponRedeemed
		}
		if coupon.IsExpired(now) {
			return ErrCouponExpired
		}
		if coupon.Owner != caller {
			return ErrNotOwner
		}
		if coupon.IsStaked() {
			return ErrCouponStaked
		}

		coupon.IsRedeemed = true
		coupon.RedeemedAt = now
		if err := repo.UpdateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to redeem coupon: %w", err)
		}

		merchant, err := repo.GetMerchantForUpdate(ctx, coupon.MerchantID)
		if err != nil {
			return fmt.Errorf("failed to get merchant: %w", err)
		}
		merchant.TotalCouponsRedeemed++
		if err := repo.UpdateMerchant(ctx, merchant); err != nil {
			return fmt.Errorf("failed to update merchant stats: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventCouponRedeemed, coupon.ID.String(), map[string]interface{}{
			"coupon":      coupon.ID,
			"user":        caller,
			"redeemed_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[RedeemCoupon] Coupon %s redeemed by %s", couponID, caller)

	return coupon, nil
}

// TransferCoupon moves ownership of an unredeemed, unstaked coupon
func (ms *MarketplaceService) TransferCoupon(
	ctx context.Context,
	caller string,
	couponID uuid.UUID,
	newOwner string,
) (*models.Coupon, error) {
	now := ms.now().Unix()
	var coupon *models.Coupon

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		var err error
		coupon, err = repo.GetCouponForUpdate(ctx, couponID)
		if err != nil {
			return fmt.Errorf("failed to get coupon: %w", err)
		}
		if coupon.IsRedeemed {
			return ErrCouponRedeemed
		}
		if coupon.IsExpired(now) {
			return ErrCouponExpired
		}
		if coupon.Owner != caller {
			return ErrNotOwner
		}
		if coupon.IsStaked() {
			return ErrCouponStaked
		}

		oldOwner := coupon.Owner
		coupon.Owner = newOwner
		coupon.CustodyHolder = newOwner
		if err := repo.UpdateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to transfer coupon: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventCouponTransferred, coupon.ID.String(), map[string]interface{}{
			"coupon": coupon.ID,
			"from":   oldOwner,
			"to":     newOwner,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[TransferCoupon] Coupon %s transferred %s -> %s", couponID, caller, newOwner)

	return coupon, nil
}

// MarketplaceStats is a display-unit summary of marketplace totals
type MarketplaceStats struct {
	TotalCoupons     int64           `json:"total_coupons"`
	TotalMerchants   int64           `json:"total_merchants"`
	FeePercent       decimal.Decimal `json:"fee_percent"`
	AuthorityBalance decimal.Decimal `json:"authority_balance_sol"`
}

// GetStats summarizes marketplace totals with display-unit conversion
func (ms *MarketplaceService) GetStats(ctx context.Context) (*MarketplaceStats, error) {
	repo := repository.NewRepository(ms.db)

	marketplace, err := repo.GetMarketplace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get marketplace: %w", err)
	}

	balance, err := ledger.Balance(ms.db, marketplace.Authority)
	if err != nil {
		return nil, fmt.Errorf("failed to get authority balance: %w", err)
	}

	return &MarketplaceStats{
		TotalCoupons:     marketplace.TotalCoupons,
		TotalMerchants:   marketplace.TotalMerchants,
		FeePercent:       decimal.NewFromInt(marketplace.FeeBasisPoints).Div(decimal.NewFromInt(100)),
		AuthorityBalance: decimal.NewFromInt(balance).Div(lamportsPerSol),
	}, nil
}

// GetCoupon retrieves a coupon by ID
func (ms *MarketplaceService) GetCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	return repository.NewRepository(ms.db).GetCouponByID(ctx, couponID)
}

// GetCouponsByOwner lists coupons owned by a wallet
func (ms *MarketplaceService) GetCouponsByOwner(ctx context.Context, owner string, limit, offset int) ([]*models.Coupon, error) {
	return repository.NewRepository(ms.db).GetCouponsByOwner(ctx, owner, limit, offset)
}

// ListPromotions lists active promotions
func (ms *MarketplaceService) ListPromotions(ctx context.Context, limit, offset int) ([]*models.Promotion, error) {
	return repository.NewRepository(ms.db).ListPromotions(ctx, limit, offset)
}
