package handlers

import (
	"net/http"

	"coupon-platform/internal/auth"
	"coupon-platform/internal/models"
	"coupon-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuctionHandler struct {
	auctionService *services.AuctionService
}

func NewAuctionHandler(auctionService *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{
		auctionService: auctionService,
	}
}

// CreateAuction creates a new auction for a coupon the caller owns
// POST /api/auctions
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	seller, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auction, err := h.auctionService.CreateAuction(c.Request.Context(), seller, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, auction)
}

// GetAuction retrieves an auction by ID
// GET /api/auctions/:id
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	auction, err := h.auctionService.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
		return
	}

	c.JSON(http.StatusOK, auction)
}

// ListAuctions retrieves active auctions
// GET /api/auctions
func (h *AuctionHandler) ListAuctions(c *gin.Context) {
	limit, offset := parsePagination(c)

	auctions, err := h.auctionService.ListActiveAuctions(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get auctions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"auctions": auctions,
		"total":    len(auctions),
	})
}

// PlaceBid places a bid on an ascending or sealed-bid auction
// POST /api/auctions/:id/bids
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	bidder, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	var req models.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bid, err := h.auctionService.PlaceBid(c.Request.Context(), bidder, auctionID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bid)
}

// GetCurrentPrice returns the live price of a descending auction
// GET /api/auctions/:id/price
func (h *AuctionHandler) GetCurrentPrice(c *gin.Context) {
	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	price, err := h.auctionService.CurrentDescendingPrice(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"price": price})
}

// BuyNow purchases a descending auction at the current price
// POST /api/auctions/:id/buy
func (h *AuctionHandler) BuyNow(c *gin.Context) {
	buyer, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	auction, err := h.auctionService.BuyDescendingAuction(c.Request.Context(), buyer, auctionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, auction)
}

// FinalizeAuction settles an ended ascending or sealed-bid auction
// POST /api/auctions/:id/finalize
func (h *AuctionHandler) FinalizeAuction(c *gin.Context) {
	caller, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	auction, err := h.auctionService.FinalizeAuction(c.Request.Context(), caller, auctionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, auction)
}

// CancelAuction cancels a bidless auction the caller created
// POST /api/auctions/:id/cancel
func (h *AuctionHandler) CancelAuction(c *gin.Context) {
	caller, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	auctionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid auction id"})
		return
	}

	if err := h.auctionService.CancelAuction(c.Request.Context(), caller, auctionID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "auction cancelled"})
}
