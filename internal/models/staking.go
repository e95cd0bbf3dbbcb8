package models

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrArithmeticOverflow aborts reward computations that would wrap
// instead of silently saturating.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

const (
	// SecondsPerDay is the accrual granularity: partial days earn nothing.
	SecondsPerDay = 86400

	// StakeBaseValue is the fixed base-unit value locked per staked coupon.
	StakeBaseValue = 1_000_000
)

// StakingPool is the singleton pool all stakes accrue against
type StakingPool struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Authority               string    `gorm:"size:64;not null" json:"authority"`
	RewardHolder            string    `gorm:"size:64;not null" json:"reward_holder"` // ledger account rewards are paid from
	TotalStaked             int64     `gorm:"default:0" json:"total_staked"`
	TotalRewardsDistributed int64     `gorm:"default:0" json:"total_rewards_distributed"`
	RewardRatePerDay        int64     `gorm:"not null" json:"reward_rate_per_day"` // basis points, 100 = 1%/day
	MinStakeDuration        int64     `gorm:"not null" json:"min_stake_duration"`  // seconds
	IsActive                bool      `gorm:"default:true" json:"is_active"`
	CreatedAt               time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (StakingPool) TableName() string {
	return "staking_pool"
}

// StakeAccount is one user's time-locked coupon stake
type StakeAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	User          string    `gorm:"size:64;not null;index" json:"user"`
	CouponID      uuid.UUID `gorm:"type:uuid;not null;index" json:"coupon_id"`
	Mint          string    `gorm:"size:64;not null" json:"mint"`
	VaultHolder   string    `gorm:"size:64;not null" json:"vault_holder"`
	AmountStaked  int64     `gorm:"not null" json:"amount_staked"`
	StakedAt      int64     `gorm:"not null" json:"staked_at"`
	UnlockAt      int64     `gorm:"not null" json:"unlock_at"`
	DurationDays  int64     `gorm:"not null" json:"duration_days"`
	RewardsEarned int64     `gorm:"default:0" json:"rewards_earned"`
	IsActive      bool      `gorm:"default:true;index" json:"is_active"`
	ClaimedAt     *int64    `json:"claimed_at,omitempty"`
}

func (StakeAccount) TableName() string {
	return "stake_accounts"
}

// CalculateRewards accrues rewards up to currentTime at the given daily
// basis-point rate. Elapsed time is truncated to whole days before the
// floor-divided payout, so partial days accrue nothing.
func (s *StakeAccount) CalculateRewards(currentTime int64, rewardRate int64) (int64, error) {
	if currentTime < s.StakedAt {
		return 0, nil
	}

	elapsedDays := (currentTime - s.StakedAt) / SecondsPerDay
	product, err := checkedMul(s.AmountStaked, rewardRate)
	if err != nil {
		return 0, err
	}
	product, err = checkedMul(product, elapsedDays)
	if err != nil {
		return 0, err
	}
	return product / 10000, nil
}

func checkedMul(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if a > math.MaxInt64/b {
		return 0, ErrArithmeticOverflow
	}
	return a * b, nil
}

// CanClaim reports whether the stake is claimable at the given time
func (s *StakeAccount) CanClaim(currentTime int64) bool {
	return s.IsActive && currentTime >= s.UnlockAt
}

// InitializeStakingPoolRequest configures the singleton pool
type InitializeStakingPoolRequest struct {
	RewardRatePerDay int64 `json:"reward_rate_per_day" binding:"required,gt=0"`
	MinStakeDuration int64 `json:"min_stake_duration" binding:"gte=0"`
}

// StakeCouponRequest locks a coupon the caller owns into the pool
type StakeCouponRequest struct {
	CouponID     string `json:"coupon_id" binding:"required"`
	DurationDays int64  `json:"duration_days" binding:"required,gt=0"`
}
