package repository

import (
	"context"

	"coupon-platform/internal/models"

	"github.com/google/uuid"
)

// CreateAuction creates a new auction
func (r *Repository) CreateAuction(ctx context.Context, auction *models.Auction) error {
	return r.db.WithContext(ctx).Create(auction).Error
}

// GetAuctionByID retrieves an auction by ID
func (r *Repository) GetAuctionByID(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&auction).Error
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// GetAuctionForUpdate loads an auction under a row lock so concurrent
// bids on the same auction serialize.
func (r *Repository) GetAuctionForUpdate(ctx context.Context, id uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	if err := lockForUpdate(ctx, r.db, &auction, id); err != nil {
		return nil, err
	}
	return &auction, nil
}

// UpdateAuction saves an auction
func (r *Repository) UpdateAuction(ctx context.Context, auction *models.Auction) error {
	return r.db.WithContext(ctx).Save(auction).Error
}

// ListActiveAuctions lists active auctions, newest first
func (r *Repository) ListActiveAuctions(ctx context.Context, limit, offset int) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&auctions).Error
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

// CreateBid appends an immutable bid record
func (r *Repository) CreateBid(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

// UpdateBid saves bid bookkeeping flags (winning/refunded)
func (r *Repository) UpdateBid(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Save(bid).Error
}

// GetAuctionBids lists all bids of an auction in placement order
func (r *Repository) GetAuctionBids(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Order("sequence ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// GetWinningBid retrieves the bid currently marked winning, if any
func (r *Repository) GetWinningBid(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ? AND is_winning = ?", auctionID, true).
		Order("sequence DESC").
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}
