package repository

import (
	"context"
	"errors"

	"github.com/hopelink/givecoin/internal/donation/domain"
	"github.com/hopelink/givecoin/pkg/db"
	"gorm.io/gorm"
)

type gormRepo struct {
	db    *gorm.DB
	locks *keyLock
}

// NewGorm builds a database-backed donation repository.
func NewGorm(db *gorm.DB) domain.Repository {
	return &gormRepo{db: db, locks: newKeyLock()}
}

func (r *gormRepo) Insert(ctx context.Context, donation *domain.Donation) error {
	err := r.db.WithContext(ctx).Create(donation).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *gormRepo) FindByChargeID(ctx context.Context, chargeID string) (*domain.Donation, error) {
	return r.findOne(ctx, "charge_id = ?", chargeID)
}

func (r *gormRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Donation, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

func (r *gormRepo) findOne(ctx context.Context, query string, arg string) (*domain.Donation, error) {
	var donation domain.Donation
	err := r.db.WithContext(ctx).Where(query, arg).First(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &donation, nil
}

func (r *gormRepo) List(ctx context.Context) ([]*domain.Donation, error) {
	var donations []*domain.Donation
	err := r.db.WithContext(ctx).
		Order("created_at asc, id asc").
		Find(&donations).Error
	if err != nil {
		return nil, err
	}
	return donations, nil
}

func (r *gormRepo) Transition(ctx context.Context, chargeID string, apply func(*domain.Donation) error) error {
	// Per-key serialization on top of the transaction: sqlite offers no
	// row locks, and concurrent updates to the same charge must not lose
	// writes on any backend.
	lock := r.locks.get(chargeID)
	lock.Lock()
	defer lock.Unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var donation domain.Donation
		if err := tx.Where("charge_id = ?", chargeID).First(&donation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if err := apply(&donation); err != nil {
			return err
		}
		return tx.Save(&donation).Error
	})
}
