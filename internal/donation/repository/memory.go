package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hopelink/givecoin/internal/donation/domain"
)

type memoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Donation // keyed by charge ID
	byOrder map[string]string           // order ID -> charge ID
	locks   *keyLock
}

// NewMemory builds an in-process donation repository. Records live for the
// lifetime of the process only.
func NewMemory() domain.Repository {
	return &memoryRepo{
		byID:    make(map[string]*domain.Donation),
		byOrder: make(map[string]string),
		locks:   newKeyLock(),
	}
}

func (r *memoryRepo) Insert(ctx context.Context, donation *domain.Donation) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[donation.ChargeID]; exists {
		return domain.ErrAlreadyExists
	}
	clone := *donation
	r.byID[clone.ChargeID] = &clone
	r.byOrder[clone.OrderID] = clone.ChargeID
	return nil
}

func (r *memoryRepo) FindByChargeID(ctx context.Context, chargeID string) (*domain.Donation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	donation, ok := r.byID[chargeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *donation
	return &clone, nil
}

func (r *memoryRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Donation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	chargeID, ok := r.byOrder[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *r.byID[chargeID]
	return &clone, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]*domain.Donation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	donations := make([]*domain.Donation, 0, len(r.byID))
	for _, donation := range r.byID {
		clone := *donation
		donations = append(donations, &clone)
	}
	sort.Slice(donations, func(i, j int) bool {
		if donations[i].CreatedAt.Equal(donations[j].CreatedAt) {
			return donations[i].ID < donations[j].ID
		}
		return donations[i].CreatedAt.Before(donations[j].CreatedAt)
	})
	return donations, nil
}

func (r *memoryRepo) Transition(ctx context.Context, chargeID string, apply func(*domain.Donation) error) error {
	_ = ctx
	lock := r.locks.get(chargeID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	donation, ok := r.byID[chargeID]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrNotFound
	}

	clone := *donation
	if err := apply(&clone); err != nil {
		return err
	}

	r.mu.Lock()
	r.byID[chargeID] = &clone
	r.mu.Unlock()
	return nil
}
