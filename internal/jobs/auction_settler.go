package jobs

import (
	"context"
	"log"
	"time"

	"coupon-platform/internal/models"
	"coupon-platform/internal/services"
)

// AuctionSettler automatically settles expired auctions
type AuctionSettler struct {
	auctionService *services.AuctionService
	interval       time.Duration
	stopChan       chan struct{}
}

// NewAuctionSettler creates a new auction settlement job
func NewAuctionSettler(auctionService *services.AuctionService, interval time.Duration) *AuctionSettler {
	return &AuctionSettler{
		auctionService: auctionService,
		interval:       interval,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the settlement loop
func (s *AuctionSettler) Start() {
	log.Printf("[AuctionSettler] Starting auction settlement job (interval: %v)", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.settleExpiredAuctions()
		case <-s.stopChan:
			log.Println("[AuctionSettler] Stopping auction settlement job")
			return
		}
	}
}

// Stop stops the settlement loop
func (s *AuctionSettler) Stop() {
	close(s.stopChan)
}

// settleExpiredAuctions finalizes all active auctions past their end
// time. Descending auctions have no settlement step: an unsold one
// just sits until its seller cancels, so they are skipped here.
func (s *AuctionSettler) settleExpiredAuctions() {
	ctx := context.Background()

	auctions, err := s.auctionService.ListActiveAuctions(ctx, 100, 0)
	if err != nil {
		log.Printf("[AuctionSettler] Error fetching active auctions: %v", err)
		return
	}

	if len(auctions) == 0 {
		return
	}

	now := time.Now().Unix()
	settledCount := 0

	for _, auction := range auctions {
		if auction.Kind == models.AuctionKindDescending {
			continue
		}
		if !auction.CanFinalize(now) {
			continue
		}

		log.Printf("[AuctionSettler] Settling expired auction: %s (ended: %d)", auction.ID, auction.EndTime)

		// The caller identity only matters for early closes, which the
		// settler never performs.
		if _, err := s.auctionService.FinalizeAuction(ctx, "settler", auction.ID); err != nil {
			log.Printf("[AuctionSettler] Error settling auction %s: %v", auction.ID, err)
			continue
		}

		settledCount++
	}

	if settledCount > 0 {
		log.Printf("[AuctionSettler] Settled %d auctions", settledCount)
	}
}
