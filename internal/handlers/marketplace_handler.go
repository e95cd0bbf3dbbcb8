package handlers

import (
	"net/http"

	"coupon-platform/internal/auth"
	"coupon-platform/internal/models"
	"coupon-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MarketplaceHandler struct {
	marketplaceService *services.MarketplaceService
}

func NewMarketplaceHandler(marketplaceService *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplaceService: marketplaceService,
	}
}

// InitializeMarketplace creates the singleton marketplace config
// POST /api/marketplace
func (h *MarketplaceHandler) InitializeMarketplace(c *gin.Context) {
	authority, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.InitializeMarketplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	marketplace, err := h.marketplaceService.InitializeMarketplace(c.Request.Context(), authority, req.FeeBasisPoints)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, marketplace)
}

// GetStats returns marketplace totals in display units
// GET /api/marketplace/stats
func (h *MarketplaceHandler) GetStats(c *gin.Context) {
	stats, err := h.marketplaceService.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "marketplace not initialized"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RegisterMerchant registers the caller's wallet as a merchant
// POST /api/merchants
func (h *MarketplaceHandler) RegisterMerchant(c *gin.Context) {
	authority, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.RegisterMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	merchant, err := h.marketplaceService.RegisterMerchant(c.Request.Context(), authority, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, merchant)
}

// CreatePromotion creates a promotion under the caller's merchant
// POST /api/promotions
func (h *MarketplaceHandler) CreatePromotion(c *gin.Context) {
	authority, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	promotion, err := h.marketplaceService.CreatePromotion(c.Request.Context(), authority, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, promotion)
}

// ListPromotions lists active promotions
// GET /api/promotions
func (h *MarketplaceHandler) ListPromotions(c *gin.Context) {
	limit, offset := parsePagination(c)

	promotions, err := h.marketplaceService.ListPromotions(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get promotions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"promotions": promotions,
		"total":      len(promotions),
	})
}

// MintCoupon mints a coupon from a promotion to the caller
// POST /api/coupons/mint
func (h *MarketplaceHandler) MintCoupon(c *gin.Context) {
	owner, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.MintCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	promotionID, err := uuid.Parse(req.PromotionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid promotion id"})
		return
	}

	coupon, err := h.marketplaceService.MintCoupon(c.Request.Context(), owner, promotionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, coupon)
}

// GetCoupon retrieves a coupon by ID
// GET /api/coupons/:id
func (h *MarketplaceHandler) GetCoupon(c *gin.Context) {
	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon id"})
		return
	}

	coupon, err := h.marketplaceService.GetCoupon(c.Request.Context(), couponID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
		return
	}

	c.JSON(http.StatusOK, coupon)
}

// GetMyCoupons lists the caller's coupons
// GET /api/coupons
func (h *MarketplaceHandler) GetMyCoupons(c *gin.Context) {
	owner, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, offset := parsePagination(c)

	coupons, err := h.marketplaceService.GetCouponsByOwner(c.Request.Context(), owner, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get coupons"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons": coupons,
		"total":   len(coupons),
	})
}

// RedeemCoupon marks the caller's coupon redeemed
// POST /api/coupons/:id/redeem
func (h *MarketplaceHandler) RedeemCoupon(c *gin.Context) {
	caller, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon id"})
		return
	}

	coupon, err := h.marketplaceService.RedeemCoupon(c.Request.Context(), caller, couponID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, coupon)
}

// TransferCoupon moves coupon ownership to another wallet
// POST /api/coupons/:id/transfer
func (h *MarketplaceHandler) TransferCoupon(c *gin.Context) {
	caller, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coupon id"})
		return
	}

	var req models.TransferCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coupon, err := h.marketplaceService.TransferCoupon(c.Request.Context(), caller, couponID, req.NewOwner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, coupon)
}
