package services

import "errors"

// Typed failure reasons. Every operation aborts with one of these (or
// a wrapped storage/ledger error) before any state is mutated.
var (
	// Validation failures
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidExpiry    = errors.New("invalid expiry or duration")
	ErrInvalidDiscount  = errors.New("invalid discount percentage")
	ErrInvalidSupply    = errors.New("invalid supply amount")
	ErrInvalidTiers     = errors.New("discount tiers must be ascending and at most 5")
	ErrInvalidKind      = errors.New("operation not valid for this auction kind")
	ErrInvalidFeeRate   = errors.New("fee basis points must be between 0 and 10000")
	ErrNameTooLong      = errors.New("name is too long")
	ErrCategoryTooLong  = errors.New("category is too long")
	ErrDescriptionLong  = errors.New("description is too long")
	ErrInvalidWallet    = errors.New("invalid wallet address")

	// State failures
	ErrAuctionInactive   = errors.New("auction is inactive")
	ErrAuctionEnded      = errors.New("auction has ended")
	ErrAuctionNotEnded   = errors.New("auction has not ended yet")
	ErrAlreadyFinalized  = errors.New("already finalized")
	ErrDealInactive      = errors.New("group deal is inactive")
	ErrDealExpired       = errors.New("group deal deadline has passed")
	ErrDealNotExpired    = errors.New("group deal deadline has not passed")
	ErrDealNotFinalized  = errors.New("group deal is not finalized")
	ErrTargetNotReached  = errors.New("target participants not reached")
	ErrTargetReached     = errors.New("target participants already reached")
	ErrPromotionInactive = errors.New("promotion is inactive")
	ErrPromotionExpired  = errors.New("promotion expired")
	ErrSupplyExhausted   = errors.New("supply exhausted")
	ErrCouponExpired     = errors.New("coupon expired")
	ErrCouponRedeemed    = errors.New("coupon already redeemed")
	ErrCouponStaked      = errors.New("coupon is locked in staking custody")
	ErrPoolInactive      = errors.New("staking pool is inactive")
	ErrPoolExists        = errors.New("staking pool already initialized")
	ErrMarketplaceExists = errors.New("marketplace already initialized")
	ErrStakeInactive     = errors.New("stake is inactive")
	ErrStakeLocked       = errors.New("stake has not unlocked yet")
	ErrNoRewards         = errors.New("no rewards accrued")

	// Authorization failures
	ErrNotOwner     = errors.New("caller is not the coupon owner")
	ErrNotSeller    = errors.New("caller is not the auction seller")
	ErrNotAuthority = errors.New("caller is not the authority")
	ErrNotMerchant  = errors.New("caller is not the merchant authority")

	// Replay failures
	ErrAlreadyRefunded = errors.New("participant already refunded")
	ErrAlreadyMinted   = errors.New("participant coupon already minted")
	ErrAlreadyJoined   = errors.New("user already joined this deal")
	ErrCancelledBids   = errors.New("cannot cancel an auction with bids")
)
