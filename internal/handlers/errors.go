package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"coupon-platform/internal/services"
)

// respondError maps service errors to HTTP statuses: missing rows are
// 404, authorization failures 403, everything else is the caller's
// fault.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrNotOwner),
		errors.Is(err, services.ErrNotSeller),
		errors.Is(err, services.ErrNotAuthority),
		errors.Is(err, services.ErrNotMerchant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// parsePagination reads limit/offset query params with sane bounds
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}
	return limit, offset
}
