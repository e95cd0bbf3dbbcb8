package services

import (
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"

	"coupon-platform/internal/ledger"
	"coupon-platform/internal/models"
	"coupon-platform/internal/utils"
)

// AuthService handles authentication business logic
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// ProcessWalletLogin finds or creates a user by wallet address
func (s *AuthService) ProcessWalletLogin(walletAddress string, nickname string) (*models.User, error) {
	if _, err := solana.PublicKeyFromBase58(walletAddress); err != nil {
		return nil, ErrInvalidWallet
	}

	var user models.User

	result := s.db.Where("wallet_address = ?", walletAddress).First(&user)

	if result.Error == gorm.ErrRecordNotFound {
		// New user — create account
		if nickname == "" {
			generated, err := utils.GenerateNickname()
			if err != nil {
				return nil, fmt.Errorf("failed to generate nickname: %w", err)
			}
			nickname = generated
		}
		user = models.User{
			WalletAddress: walletAddress,
			Nickname:      nickname,
		}

		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		log.Printf("New user created: wallet=%s (ID: %d)", walletAddress, user.ID)
	} else if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	} else {
		log.Printf("User logged in: wallet=%s (ID: %d)", walletAddress, user.ID)
	}

	return &user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Deposit credits a wallet's ledger account. Devnet convenience so
// users can fund bids and stakes without a real payment rail.
func (s *AuthService) Deposit(walletAddress string, amount int64) (int64, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return ledger.Deposit(tx, walletAddress, amount)
	})
	if err != nil {
		return 0, err
	}

	balance, err := ledger.Balance(s.db, walletAddress)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}

	log.Printf("[Deposit] %d credited to %s (balance: %d)", amount, walletAddress, balance)

	return balance, nil
}

// GetBalance returns a wallet's current ledger balance
func (s *AuthService) GetBalance(walletAddress string) (int64, error) {
	return ledger.Balance(s.db, walletAddress)
}
