package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&Account{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func mustBalance(t *testing.T, db *gorm.DB, holder string) int64 {
	t.Helper()

	balance, err := Balance(db, holder)
	if err != nil {
		t.Fatalf("balance of %s: %v", holder, err)
	}
	return balance
}

func TestDeposit(t *testing.T) {
	db := openTestDB(t)

	if err := Deposit(db, "alice", 1000); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := Deposit(db, "alice", 500); err != nil {
		t.Fatalf("second deposit failed: %v", err)
	}
	if got := mustBalance(t, db, "alice"); got != 1500 {
		t.Errorf("balance = %d, want 1500", got)
	}

	if err := Deposit(db, "alice", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero deposit: got %v, want ErrInvalidAmount", err)
	}
	if err := Deposit(db, "alice", -5); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative deposit: got %v, want ErrInvalidAmount", err)
	}
}

func TestTransfer(t *testing.T) {
	db := openTestDB(t)

	if err := Deposit(db, "alice", 1000); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if err := Transfer(db, "alice", "bob", 400); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if got := mustBalance(t, db, "alice"); got != 600 {
		t.Errorf("alice = %d, want 600", got)
	}
	if got := mustBalance(t, db, "bob"); got != 400 {
		t.Errorf("bob = %d, want 400", got)
	}

	// Exact-balance transfer drains the account
	if err := Transfer(db, "alice", "bob", 600); err != nil {
		t.Fatalf("draining transfer failed: %v", err)
	}
	if got := mustBalance(t, db, "alice"); got != 0 {
		t.Errorf("alice = %d, want 0", got)
	}
}

func TestTransferRejections(t *testing.T) {
	db := openTestDB(t)

	if err := Deposit(db, "alice", 100); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	if err := Transfer(db, "alice", "bob", 101); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("overdraft: got %v, want ErrInsufficientFunds", err)
	}
	if err := Transfer(db, "ghost", "bob", 10); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("missing source: got %v, want ErrInsufficientFunds", err)
	}
	if err := Transfer(db, "alice", "alice", 10); !errors.Is(err, ErrSameHolder) {
		t.Errorf("self transfer: got %v, want ErrSameHolder", err)
	}
	if err := Transfer(db, "alice", "bob", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero transfer: got %v, want ErrInvalidAmount", err)
	}

	// Failed transfers leave both sides untouched
	if got := mustBalance(t, db, "alice"); got != 100 {
		t.Errorf("alice = %d, want 100", got)
	}
	if got := mustBalance(t, db, "bob"); got != 0 {
		t.Errorf("bob = %d, want 0", got)
	}
}

func TestBalanceUnknownHolder(t *testing.T) {
	db := openTestDB(t)

	if got := mustBalance(t, db, "nobody"); got != 0 {
		t.Errorf("unknown holder balance = %d, want 0", got)
	}
}

func TestDeriveHolder(t *testing.T) {
	a := DeriveHolder(KindAuctionEscrow, "parent-1", 0)
	b := DeriveHolder(KindAuctionEscrow, "parent-1", 0)
	if a != b {
		t.Error("same inputs produced different holders")
	}

	distinct := map[string]string{
		"other kind":   DeriveHolder(KindGroupEscrow, "parent-1", 0),
		"other parent": DeriveHolder(KindAuctionEscrow, "parent-2", 0),
		"other nonce":  DeriveHolder(KindAuctionEscrow, "parent-1", 1),
	}
	for name, got := range distinct {
		if got == a {
			t.Errorf("%s collided with base derivation", name)
		}
	}
}
