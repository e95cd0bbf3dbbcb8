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

type StakingService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStakingService(db *gorm.DB) *StakingService {
	return &StakingService{
		db:  db,
		now: time.Now,
	}
}

// InitializeStakingPool creates the singleton pool. Rewards are paid
// from a ledger account derived for the pool; deposit into it to fund
// reward distribution.
func (ss *StakingService) InitializeStakingPool(
	ctx context.Context,
	authority string,
	rewardRatePerDay int64,
	minStakeDuration int64,
) (*models.StakingPool, error) {
	if rewardRatePerDay <= 0 {
		return nil, ErrInvalidPrice
	}
	if minStakeDuration < 0 {
		return nil, ErrInvalidExpiry
	}

	var pool *models.StakingPool

	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		if _, err := repo.GetStakingPool(ctx); err == nil {
			return ErrPoolExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check staking pool: %w", err)
		}

		poolID := uuid.New()
		pool = &models.StakingPool{
			ID:               poolID,
			Authority:        authority,
			RewardHolder:     ledger.DeriveHolder(ledger.KindRewardPool, poolID.String(), 0),
			RewardRatePerDay: rewardRatePerDay,
			MinStakeDuration: minStakeDuration,
			IsActive:         true,
		}
		return repo.CreateStakingPool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[InitializeStakingPool] Pool created: %d bps/day, min duration %ds",
		rewardRatePerDay, minStakeDuration)

	return pool, nil
}

// StakeCoupon locks custody of a coupon's backing token into the pool
// vault for a fixed number of days.
func (ss *StakingService) StakeCoupon(
	ctx context.Context,
	user string,
	couponID uuid.UUID,
	durationDays int64,
) (*models.StakeAccount, error) {
	if durationDays <= 0 {
		return nil, ErrInvalidExpiry
	}

	now := ss.now().Unix()
	var stake *models.StakeAccount

	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		pool, err := repo.GetStakingPoolForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("failed to get staking pool: %w", err)
		}
		if !pool.IsActive {
			return ErrPoolInactive
		}

		durationSeconds := durationDays * models.SecondsPerDay
		if durationSeconds < pool.MinStakeDuration {
			return ErrInvalidExpiry
		}

		coupon, err := repo.GetCouponForUpdate(ctx, couponID)
		if err != nil {
			return fmt.Errorf("failed to get coupon: %w", err)
		}
		if coupon.Owner != user {
			return ErrNotOwner
		}
		if coupon.IsRedeemed {
			return ErrCouponRedeemed
		}
		if coupon.IsStaked() {
			return ErrCouponStaked
		}

		// Move token custody into the pool vault
		vaultHolder := ledger.DeriveHolder(ledger.KindStakeVault, coupon.Mint, 0)
		coupon.CustodyHolder = vaultHolder
		if err := repo.UpdateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to move coupon custody: %w", err)
		}

		stake = &models.StakeAccount{
			ID:           uuid.New(),
			User:         user,
			CouponID:     coupon.ID,
			Mint:         coupon.Mint,
			VaultHolder:  vaultHolder,
			AmountStaked: models.StakeBaseValue,
			StakedAt:     now,
			UnlockAt:     now + durationSeconds,
			DurationDays: durationDays,
			IsActive:     true,
		}
		if err := repo.CreateStakeAccount(ctx, stake); err != nil {
			return fmt.Errorf("failed to create stake account: %w", err)
		}

		pool.TotalStaked += stake.AmountStaked
		if err := repo.UpdateStakingPool(ctx, pool); err != nil {
			return fmt.Errorf("failed to update pool totals: %w", err)
		}

		expectedRewards, err := stake.CalculateRewards(stake.UnlockAt, pool.RewardRatePerDay)
		if err != nil {
			return err
		}

		return repo.EmitEvent(ctx, models.EventRewardsStaked, stake.ID.String(), map[string]interface{}{
			"staker":           user,
			"amount":           stake.AmountStaked,
			"duration":         durationSeconds,
			"expected_rewards": expectedRewards,
			"timestamp":        now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[StakeCoupon] Coupon %s staked by %s for %d days", couponID, user, durationDays)

	return stake, nil
}

// ClaimRewards settles a matured stake: custody of the coupon returns
// to the staker, accrued rewards are paid from the pool's reward
// account, and the stake goes inert.
func (ss *StakingService) ClaimRewards(
	ctx context.Context,
	user string,
	stakeID uuid.UUID,
) (*models.StakeAccount, error) {
	now := ss.now().Unix()
	var stake *models.StakeAccount

	err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewRepository(tx)

		var err error
		stake, err = repo.GetStakeAccountForUpdate(ctx, stakeID)
		if err != nil {
			return fmt.Errorf("failed to get stake account: %w", err)
		}
		if stake.User != user {
			return ErrNotOwner
		}
		if !stake.IsActive {
			return ErrStakeInactive
		}
		if now < stake.UnlockAt {
			return ErrStakeLocked
		}

		pool, err := repo.GetStakingPoolForUpdate(ctx)
		if err != nil {
			return fmt.Errorf("failed to get staking pool: %w", err)
		}

		rewards, err := stake.CalculateRewards(now, pool.RewardRatePerDay)
		if err != nil {
			return err
		}
		if rewards <= 0 {
			return ErrNoRewards
		}

		// Return token custody to the staker
		coupon, err := repo.GetCouponForUpdate(ctx, stake.CouponID)
		if err != nil {
			return fmt.Errorf("failed to get coupon: %w", err)
		}
		coupon.CustodyHolder = stake.User
		if err := repo.UpdateCoupon(ctx, coupon); err != nil {
			return fmt.Errorf("failed to return coupon custody: %w", err)
		}

		// Pay rewards from the pool's reward account
		if err := ledger.Transfer(tx, pool.RewardHolder, user, rewards); err != nil {
			return fmt.Errorf("failed to pay rewards: %w", err)
		}

		claimedAt := now
		stake.RewardsEarned = rewards
		stake.IsActive = false
		stake.ClaimedAt = &claimedAt
		if err := repo.UpdateStakeAccount(ctx, stake); err != nil {
			return fmt.Errorf("failed to update stake account: %w", err)
		}

		pool.TotalStaked -= stake.AmountStaked
		pool.TotalRewardsDistributed += rewards
		if err := repo.UpdateStakingPool(ctx, pool); err != nil {
			return fmt.Errorf("failed to update pool totals: %w", err)
		}

		return repo.EmitEvent(ctx, models.EventRewardsClaimed, stake.ID.String(), map[string]interface{}{
			"staker":    user,
			"amount":    rewards,
			"timestamp": now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[ClaimRewards] Stake %s claimed by %s: %d rewards", stakeID, user, stake.RewardsEarned)

	return stake, nil
}

// GetStakesByUser lists a user's stake accounts
func (ss *StakingService) GetStakesByUser(ctx context.Context, user string, limit, offset int) ([]*models.StakeAccount, error) {
	return repository.NewRepository(ss.db).GetStakesByUser(ctx, user, limit, offset)
}

// GetStakingPool retrieves the singleton pool
func (ss *StakingService) GetStakingPool(ctx context.Context) (*models.StakingPool, error) {
	return repository.NewRepository(ss.db).GetStakingPool(ctx)
}
