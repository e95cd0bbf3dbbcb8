package services

import (
	"math"

	"coupon-platform/internal/models"
)

// SplitFee splits a price by a basis-point marketplace rate into the
// seller-side net amount and the marketplace fee. The fee is floor
// divided, so net+fee always equals amount exactly. Overflow aborts
// rather than saturating.
func SplitFee(amount int64, feeBasisPoints int64) (net int64, fee int64, err error) {
	if amount < 0 {
		return 0, 0, ErrInvalidPrice
	}
	if feeBasisPoints < 0 || feeBasisPoints > 10000 {
		return 0, 0, ErrInvalidFeeRate
	}

	if feeBasisPoints != 0 && amount > math.MaxInt64/feeBasisPoints {
		return 0, 0, models.ErrArithmeticOverflow
	}

	fee = (amount * feeBasisPoints) / 10000
	return amount - fee, fee, nil
}
