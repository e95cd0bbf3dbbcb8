package handlers

import (
	"net/http"

	"coupon-platform/internal/auth"
	"coupon-platform/internal/models"
	"coupon-platform/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type GroupDealHandler struct {
	groupDealService *services.GroupDealService
}

func NewGroupDealHandler(groupDealService *services.GroupDealService) *GroupDealHandler {
	return &GroupDealHandler{
		groupDealService: groupDealService,
	}
}

// CreateGroupDeal creates a new group-buying deal
// POST /api/group-deals
func (h *GroupDealHandler) CreateGroupDeal(c *gin.Context) {
	organizer, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req models.CreateGroupDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deal, err := h.groupDealService.CreateGroupDeal(c.Request.Context(), organizer, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, deal)
}

// GetGroupDeal retrieves a group deal by ID
// GET /api/group-deals/:id
func (h *GroupDealHandler) GetGroupDeal(c *gin.Context) {
	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	deal, err := h.groupDealService.GetGroupDeal(c.Request.Context(), dealID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group deal not found"})
		return
	}

	c.JSON(http.StatusOK, deal)
}

// ListGroupDeals retrieves active group deals
// GET /api/group-deals
func (h *GroupDealHandler) ListGroupDeals(c *gin.Context) {
	limit, offset := parsePagination(c)

	deals, err := h.groupDealService.ListActiveGroupDeals(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get group deals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deals": deals,
		"total": len(deals),
	})
}

// JoinGroupDeal joins the caller to a deal, escrowing the current price
// POST /api/group-deals/:id/join
func (h *GroupDealHandler) JoinGroupDeal(c *gin.Context) {
	user, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	participant, err := h.groupDealService.JoinGroupDeal(c.Request.Context(), user, dealID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, participant)
}

// FinalizeGroupDeal settles a deal that reached its target
// POST /api/group-deals/:id/finalize
func (h *GroupDealHandler) FinalizeGroupDeal(c *gin.Context) {
	_, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	deal, err := h.groupDealService.FinalizeGroupDeal(c.Request.Context(), dealID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deal)
}

// RefundParticipant refunds one participant of an expired, failed deal
// POST /api/group-deals/:id/refund
func (h *GroupDealHandler) RefundParticipant(c *gin.Context) {
	_, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	var req models.RefundGroupDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}

	if err := h.groupDealService.RefundGroupDeal(c.Request.Context(), dealID, participantID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "participant refunded"})
}

// MintParticipantCoupon mints the coupon owed to a participant of a
// finalized deal
// POST /api/group-deals/:id/mint
func (h *GroupDealHandler) MintParticipantCoupon(c *gin.Context) {
	_, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deal id"})
		return
	}

	var req models.MintParticipantCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
		return
	}

	coupon, err := h.groupDealService.MintParticipantCoupon(c.Request.Context(), dealID, participantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, coupon)
}
