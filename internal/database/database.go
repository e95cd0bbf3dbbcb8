package database

import (
	"fmt"
	"log"

	"coupon-platform/internal/ledger"
	"coupon-platform/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	// Migrate registry models first
	registryModels := []interface{}{
		&models.User{},
		&models.Marketplace{},
		&models.Merchant{},
		&models.Promotion{},
		&models.Coupon{},
	}

	for _, model := range registryModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Migrate ledger models
	if err := DB.AutoMigrate(&ledger.Account{}); err != nil {
		log.Printf("Warning: migration issue for %T: %v", &ledger.Account{}, err)
	}

	// Migrate auction models
	auctionModels := []interface{}{
		&models.Auction{},
		&models.Bid{},
	}

	for _, model := range auctionModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Migrate group deal models
	groupDealModels := []interface{}{
		&models.GroupDeal{},
		&models.GroupParticipant{},
	}

	for _, model := range groupDealModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Migrate staking models
	stakingModels := []interface{}{
		&models.StakingPool{},
		&models.StakeAccount{},
	}

	for _, model := range stakingModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// Migrate event models
	if err := DB.AutoMigrate(&models.DomainEvent{}); err != nil {
		log.Printf("Warning: migration issue for %T: %v", &models.DomainEvent{}, err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
