package ledger

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidAmount     = errors.New("transfer amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSameHolder        = errors.New("source and destination are the same holder")
)

// Account is a single-purpose balance bucket keyed by holder id: a
// user's wallet address or a derived escrow holder.
type Account struct {
	Holder    string    `gorm:"primaryKey;size:64" json:"holder"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "ledger_accounts"
}

// Deposit credits a holder, creating the account if needed. Must run
// inside the caller's transaction when combined with other mutations.
func Deposit(tx *gorm.DB, holder string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	acct := Account{Holder: holder}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("holder = ?", holder).
		FirstOrCreate(&acct).Error; err != nil {
		return fmt.Errorf("failed to load account %s: %w", holder, err)
	}

	acct.Balance += amount
	if err := tx.Save(&acct).Error; err != nil {
		return fmt.Errorf("failed to credit account %s: %w", holder, err)
	}
	return nil
}

// Transfer moves amount from one holder to another, or fails with no
// partial movement. Both rows are locked for the caller's transaction,
// so conflicting operations on the same escrow serialize here.
func Transfer(tx *gorm.DB, from, to string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return ErrSameHolder
	}

	var source Account
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("holder = ?", from).
		First(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("failed to load source account %s: %w", from, err)
	}

	if source.Balance < amount {
		return ErrInsufficientFunds
	}

	dest := Account{Holder: to}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("holder = ?", to).
		FirstOrCreate(&dest).Error; err != nil {
		return fmt.Errorf("failed to load destination account %s: %w", to, err)
	}

	source.Balance -= amount
	dest.Balance += amount

	if err := tx.Save(&source).Error; err != nil {
		return fmt.Errorf("failed to debit %s: %w", from, err)
	}
	if err := tx.Save(&dest).Error; err != nil {
		return fmt.Errorf("failed to credit %s: %w", to, err)
	}
	return nil
}

// Balance returns a holder's current balance (0 for unknown holders).
func Balance(db *gorm.DB, holder string) (int64, error) {
	var acct Account
	err := db.Where("holder = ?", holder).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}
