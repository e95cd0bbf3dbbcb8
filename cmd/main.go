package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"coupon-platform/internal/auth"
	"coupon-platform/internal/config"
	"coupon-platform/internal/database"
	"coupon-platform/internal/handlers"
	"coupon-platform/internal/jobs"
	"coupon-platform/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Initialize services
	authService := services.NewAuthService(db)
	marketplaceService := services.NewMarketplaceService(db)
	auctionService := services.NewAuctionService(db)
	groupDealService := services.NewGroupDealService(db)
	stakingService := services.NewStakingService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	marketplaceHandler := handlers.NewMarketplaceHandler(marketplaceService)
	auctionHandler := handlers.NewAuctionHandler(auctionService)
	groupDealHandler := handlers.NewGroupDealHandler(groupDealService)
	stakingHandler := handlers.NewStakingHandler(stakingService)

	// Bootstrap the marketplace record when an authority is configured
	if cfg.Marketplace.Authority != "" {
		_, err := marketplaceService.InitializeMarketplace(
			context.Background(), cfg.Marketplace.Authority, cfg.Marketplace.FeeBasisPoints)
		switch {
		case err == nil:
			log.Printf("Marketplace initialized for %s (%d bps)",
				cfg.Marketplace.Authority, cfg.Marketplace.FeeBasisPoints)
		case errors.Is(err, services.ErrMarketplaceExists):
			// already bootstrapped on a previous run
		default:
			log.Fatalf("Failed to initialize marketplace: %v", err)
		}
	}

	// Start auction settlement job (runs every minute)
	settler := jobs.NewAuctionSettler(auctionService, time.Minute)
	go settler.Start()
	log.Println("Auction settlement job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:3001",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:3001",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public browse routes
	router.GET("/api/marketplace/stats", marketplaceHandler.GetStats)
	router.GET("/api/promotions", marketplaceHandler.ListPromotions)
	router.GET("/api/auctions", auctionHandler.ListAuctions)
	router.GET("/api/auctions/:id", auctionHandler.GetAuction)
	router.GET("/api/auctions/:id/price", auctionHandler.GetCurrentPrice)
	router.GET("/api/group-deals", groupDealHandler.ListGroupDeals)
	router.GET("/api/group-deals/:id", groupDealHandler.GetGroupDeal)
	router.GET("/api/staking/pool", stakingHandler.GetPool)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// User endpoints
		api.POST("/users/deposit", authHandler.Deposit)

		// Marketplace and merchant endpoints
		api.POST("/marketplace", marketplaceHandler.InitializeMarketplace)
		api.POST("/merchants", marketplaceHandler.RegisterMerchant)
		api.POST("/promotions", marketplaceHandler.CreatePromotion)

		// Coupon endpoints
		api.POST("/coupons/mint", marketplaceHandler.MintCoupon)
		api.GET("/coupons", marketplaceHandler.GetMyCoupons)
		api.GET("/coupons/:id", marketplaceHandler.GetCoupon)
		api.POST("/coupons/:id/redeem", marketplaceHandler.RedeemCoupon)
		api.POST("/coupons/:id/transfer", marketplaceHandler.TransferCoupon)

		// Auction endpoints
		api.POST("/auctions", auctionHandler.CreateAuction)
		api.POST("/auctions/:id/bids", auctionHandler.PlaceBid)
		api.POST("/auctions/:id/buy", auctionHandler.BuyNow)
		api.POST("/auctions/:id/finalize", auctionHandler.FinalizeAuction)
		api.POST("/auctions/:id/cancel", auctionHandler.CancelAuction)

		// Group deal endpoints
		api.POST("/group-deals", groupDealHandler.CreateGroupDeal)
		api.POST("/group-deals/:id/join", groupDealHandler.JoinGroupDeal)
		api.POST("/group-deals/:id/finalize", groupDealHandler.FinalizeGroupDeal)
		api.POST("/group-deals/:id/refund", groupDealHandler.RefundParticipant)
		api.POST("/group-deals/:id/mint", groupDealHandler.MintParticipantCoupon)

		// Staking endpoints
		api.POST("/staking/pool", stakingHandler.InitializePool)
		api.POST("/staking/stake", stakingHandler.StakeCoupon)
		api.POST("/staking/:id/claim", stakingHandler.ClaimRewards)
		api.GET("/staking/stakes", stakingHandler.GetMyStakes)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	settler.Stop()

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
