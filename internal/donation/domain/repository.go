package domain

import "context"

// Repository is the injected donation store. Implementations must serialize
// Transition calls per charge ID so a status poll racing a webhook delivery
// cannot lose an update.
type Repository interface {
	Insert(ctx context.Context, donation *Donation) error
	FindByChargeID(ctx context.Context, chargeID string) (*Donation, error)
	FindByOrderID(ctx context.Context, orderID string) (*Donation, error)
	List(ctx context.Context) ([]*Donation, error)

	// Transition loads the record for chargeID, applies the mutation and
	// persists the result atomically with respect to other transitions on
	// the same charge. Returns ErrNotFound when no record exists. When
	// apply returns an error the record is left untouched and the error
	// is propagated.
	Transition(ctx context.Context, chargeID string, apply func(*Donation) error) error
}
