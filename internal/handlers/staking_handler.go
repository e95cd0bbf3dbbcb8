package handlers

import (
	"net/http"

	"coupon-platform/internal/auth"
	"coupon-platform/internal/models"
	"coupon-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StakingHandler struct {
	stakingService *services.StakingService
}

func NewStakingHandler(stakingService *services.StakingService) *StakingHandler {
	return &StakingHandler{
		stakingService: stakingService,
	}
}

// InitializePool creates the singleton staking pool
// POST /api/staking/pool
func (h *StakingHandler) InitializePool(c *gin.Context) {
	authority, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.InitializeStakingPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.stakingService.InitializeStakingPool(
		c.Request.Context(),
		authority,
		req.RewardRatePerDay,
		req.MinStakeDuration,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pool)
}

// GetPool returns the staking pool configuration and totals
// GET /api/staking/pool
func (h *StakingHandler) GetPool(c *gin.Context) {
	pool, err := h.stakingService.GetStakingPool(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "staking pool not found"})
		return
	}

	c.JSON(http.StatusOK, pool)
}

// StakeCoupon locks a coupon the caller owns into the pool
// POST /api/staking/stake
func (h *StakingHandler) StakeCoupon(c *gin.Context) {
	user, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.StakeCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	couponID, err := uuid.Parse(req.CouponID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon id"})
		return
	}

	stake, err := h.stakingService.StakeCoupon(c.Request.Context(), user, couponID, req.DurationDays)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stake)
}

// ClaimRewards pays out a matured stake and returns the coupon
// POST /api/staking/:id/claim
func (h *StakingHandler) ClaimRewards(c *gin.Context) {
	user, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stakeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stake id"})
		return
	}

	stake, err := h.stakingService.ClaimRewards(c.Request.Context(), user, stakeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stake)
}

// GetMyStakes lists the caller's stakes
// GET /api/staking/stakes
func (h *StakingHandler) GetMyStakes(c *gin.Context) {
	user, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := parsePagination(c)

	stakes, err := h.stakingService.GetStakesByUser(c.Request.Context(), user, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stakes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stakes": stakes,
		"total":  len(stakes),
	})
}
