package models

import (
	"time"
)

// User represents a wallet-authenticated user of the platform
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	WalletAddress string    `gorm:"uniqueIndex;not null" json:"wallet_address"`
	Nickname      string    `gorm:"uniqueIndex;not null" json:"nickname"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// LoginRequest represents a wallet login request
type LoginRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	Nickname      string `json:"nickname"`
}

// DepositRequest credits a wallet's ledger account (devnet convenience)
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}
