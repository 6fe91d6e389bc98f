package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hopelink/givecoin/internal/donation/domain"
	"github.com/hopelink/givecoin/pkg/db"
)

func newBackends(t *testing.T) map[string]domain.Repository {
	t.Helper()

	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.Donation{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return map[string]domain.Repository{
		"gorm":   NewGorm(conn),
		"memory": NewMemory(),
	}
}

func newDonation(t *testing.T, chargeID, orderID string) *domain.Donation {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Donation{
		ID:        node.Generate(),
		OrderID:   orderID,
		ChargeID:  chargeID,
		Amount:    "25",
		Currency:  "USD",
		Purpose:   "Clean water",
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestInsertAndLookups(t *testing.T) {
	for name, repo := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			donation := newDonation(t, "charge-1", "donation_01ARZ")

			if err := repo.Insert(ctx, donation); err != nil {
				t.Fatalf("insert: %v", err)
			}

			byCharge, err := repo.FindByChargeID(ctx, "charge-1")
			if err != nil {
				t.Fatalf("find by charge id: %v", err)
			}
			if byCharge.OrderID != "donation_01ARZ" {
				t.Fatalf("expected order id donation_01ARZ, got %s", byCharge.OrderID)
			}

			byOrder, err := repo.FindByOrderID(ctx, "donation_01ARZ")
			if err != nil {
				t.Fatalf("find by order id: %v", err)
			}
			if byOrder.ChargeID != "charge-1" {
				t.Fatalf("expected charge id charge-1, got %s", byOrder.ChargeID)
			}

			if _, err := repo.FindByOrderID(ctx, "missing"); err != domain.ErrNotFound {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}

			donations, err := repo.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(donations) != 1 {
				t.Fatalf("expected 1 donation, got %d", len(donations))
			}
		})
	}
}

func TestTransitionUnknownCharge(t *testing.T) {
	for name, repo := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := repo.Transition(context.Background(), "missing", func(d *domain.Donation) error {
				t.Fatal("apply should not run for unknown charge")
				return nil
			})
			if err != domain.ErrNotFound {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestTransitionApplyErrorLeavesRecordUntouched(t *testing.T) {
	for name, repo := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.Insert(ctx, newDonation(t, "charge-2", "donation_02ARZ")); err != nil {
				t.Fatalf("insert: %v", err)
			}

			wantErr := domain.ErrNotFound // any sentinel will do
			err := repo.Transition(ctx, "charge-2", func(d *domain.Donation) error {
				d.Status = domain.StatusConfirmed
				return wantErr
			})
			if err != wantErr {
				t.Fatalf("expected apply error, got %v", err)
			}

			stored, err := repo.FindByChargeID(ctx, "charge-2")
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if stored.Status != domain.StatusPending {
				t.Fatalf("expected status pending, got %s", stored.Status)
			}
		})
	}
}

func TestTransitionSerializesPerCharge(t *testing.T) {
	for name, repo := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := repo.Insert(ctx, newDonation(t, "charge-3", "donation_03ARZ")); err != nil {
				t.Fatalf("insert: %v", err)
			}

			// Each transition bumps CryptoAmount by one character; if
			// updates were lost the final length would come up short.
			const workers = 16
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = repo.Transition(ctx, "charge-3", func(d *domain.Donation) error {
						d.CryptoAmount += "x"
						return nil
					})
				}()
			}
			wg.Wait()

			stored, err := repo.FindByChargeID(ctx, "charge-3")
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if len(stored.CryptoAmount) != workers {
				t.Fatalf("lost updates: expected %d applied transitions, got %d", workers, len(stored.CryptoAmount))
			}
		})
	}
}

func TestInsertDuplicateChargeID(t *testing.T) {
	for name, repo := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := repo.Insert(ctx, newDonation(t, "charge-4", "donation_04ARZ")); err != nil {
				t.Fatalf("insert: %v", err)
			}
			err := repo.Insert(ctx, newDonation(t, "charge-4", "donation_05ARZ"))
			if !errors.Is(err, domain.ErrAlreadyExists) {
				t.Fatalf("expected ErrAlreadyExists, got %v", err)
			}
		})
	}
}
