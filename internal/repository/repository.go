package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coupon-platform/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle so services can open transactions
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// WithTx returns a repository bound to an open transaction
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// EmitEvent appends a domain event in the current transaction
func (r *Repository) EmitEvent(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	event := &models.DomainEvent{
		ID:          uuid.New(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     string(data),
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// GetEventsByAggregate lists events for one record, oldest first
func (r *Repository) GetEventsByAggregate(ctx context.Context, aggregateID string) ([]*models.DomainEvent, error) {
	var events []*models.DomainEvent
	err := r.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetMarketplace retrieves the singleton marketplace config
func (r *Repository) GetMarketplace(ctx context.Context) (*models.Marketplace, error) {
	var marketplace models.Marketplace
	err := r.db.WithContext(ctx).First(&marketplace).Error
	if err != nil {
		return nil, err
	}
	return &marketplace, nil
}

// CreateMarketplace creates the singleton marketplace config
func (r *Repository) CreateMarketplace(ctx context.Context, marketplace *models.Marketplace) error {
	return r.db.WithContext(ctx).Create(marketplace).Error
}

// UpdateMarketplace saves the marketplace config
func (r *Repository) UpdateMarketplace(ctx context.Context, marketplace *models.Marketplace) error {
	return r.db.WithContext(ctx).Save(marketplace).Error
}

// GetUserByWallet retrieves a user by wallet address
func (r *Repository) GetUserByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("wallet_address = ?", walletAddress).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// lockForUpdate loads a record by id under a row lock so conflicting
// operations on the same record serialize.
func lockForUpdate(ctx context.Context, db *gorm.DB, dest interface{}, id uuid.UUID) error {
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return nil
}
