package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hopelink/givecoin/internal/clock"
	"github.com/hopelink/givecoin/internal/coinbase"
	"github.com/hopelink/givecoin/internal/config"
	"github.com/hopelink/givecoin/internal/donation/domain"
	"github.com/hopelink/givecoin/internal/donation/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProcessor struct {
	createReq  *coinbase.ChargeRequest
	createResp *coinbase.Charge
	createErr  error
	getResp    *coinbase.Charge
	getErr     error
}

func (f *fakeProcessor) CreateCharge(ctx context.Context, req coinbase.ChargeRequest) (*coinbase.Charge, error) {
	f.createReq = &req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResp, nil
}

func (f *fakeProcessor) GetCharge(ctx context.Context, chargeID string) (*coinbase.Charge, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getResp, nil
}

func newTestService(t *testing.T, processor *fakeProcessor) (domain.Service, domain.Repository, *clock.FakeClock) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.NewMemory()
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		Cfg: config.Config{
			Environment:  "test",
			FrontendURL:  "https://donate.example.org",
			StoreBackend: config.StoreBackendMemory,
		},
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fc,
		Repo:      repo,
		Processor: processor,
	})
	return svc, repo, fc
}

func TestCreateChargeStoresPendingRecord(t *testing.T) {
	processor := &fakeProcessor{
		createResp: &coinbase.Charge{
			ID:        "charge-1",
			HostedURL: "https://commerce.coinbase.com/charges/1",
		},
	}
	svc, repo, fc := newTestService(t, processor)

	resp, err := svc.CreateCharge(context.Background(), domain.CreateChargeRequest{
		Amount:     json.Number("25"),
		Currency:   "usd",
		Purpose:    "Clean water",
		DonorEmail: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "charge-1", resp.ChargeID)
	assert.Equal(t, "https://commerce.coinbase.com/charges/1", resp.HostedURL)
	assert.True(t, strings.HasPrefix(resp.OrderID, "donation_"))

	// The order ID goes into the processor metadata exactly once, before
	// the charge call returns.
	require.NotNil(t, processor.createReq)
	assert.Equal(t, resp.OrderID, processor.createReq.Metadata["order_id"])
	assert.Equal(t, "Clean water", processor.createReq.Metadata["donation_purpose"])
	assert.Equal(t, "alice@example.com", processor.createReq.Metadata["customer_email"])
	assert.Equal(t, "fixed_price", processor.createReq.PricingType)
	assert.Equal(t, "USD", processor.createReq.LocalPrice.Currency)
	assert.Equal(t, "25", processor.createReq.LocalPrice.Amount)
	assert.Equal(t, "https://donate.example.org/donation-success", processor.createReq.RedirectURL)
	assert.Equal(t, "https://donate.example.org/donation-cancelled", processor.createReq.CancelURL)

	stored, err := repo.FindByChargeID(context.Background(), "charge-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.Status)
	assert.Equal(t, resp.OrderID, stored.OrderID)
	assert.Equal(t, fc.Now(), stored.CreatedAt)
	assert.Nil(t, stored.ConfirmedAt)
}

func TestCreateChargeMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.CreateChargeRequest
		wantErr error
	}{
		{"missing amount", domain.CreateChargeRequest{Currency: "USD", Purpose: "Books"}, domain.ErrMissingAmount},
		{"missing currency", domain.CreateChargeRequest{Amount: "10", Purpose: "Books"}, domain.ErrMissingCurrency},
		{"missing purpose", domain.CreateChargeRequest{Amount: "10", Currency: "USD"}, domain.ErrMissingPurpose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &fakeProcessor{}
			svc, repo, _ := newTestService(t, processor)

			_, err := svc.CreateCharge(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			// No processor call, no record.
			assert.Nil(t, processor.createReq)
			donations, listErr := repo.List(context.Background())
			require.NoError(t, listErr)
			assert.Empty(t, donations)
		})
	}
}

func TestCreateChargeUpstreamFailureCreatesNoRecord(t *testing.T) {
	processor := &fakeProcessor{
		createErr: &coinbase.APIError{StatusCode: 400, Message: "missing pricing_type"},
	}
	svc, repo, _ := newTestService(t, processor)

	_, err := svc.CreateCharge(context.Background(), domain.CreateChargeRequest{
		Amount:   "10",
		Currency: "USD",
		Purpose:  "Books",
	})
	var apiErr *coinbase.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "missing pricing_type", apiErr.Message)

	donations, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, donations)
}

func TestChargeStatusUpdatesStatusOnly(t *testing.T) {
	raw := json.RawMessage(`{"id":"charge-1","timeline":[{"status":"NEW"},{"status":"COMPLETED"}]}`)
	processor := &fakeProcessor{
		createResp: &coinbase.Charge{ID: "charge-1", HostedURL: "https://x"},
		getResp: &coinbase.Charge{
			ID: "charge-1",
			Timeline: []coinbase.TimelineEntry{
				{Status: "NEW"},
				{Status: "COMPLETED"},
			},
			Raw: raw,
		},
	}
	svc, repo, _ := newTestService(t, processor)

	_, err := svc.CreateCharge(context.Background(), domain.CreateChargeRequest{
		Amount:   "10",
		Currency: "USD",
		Purpose:  "Books",
	})
	require.NoError(t, err)

	resp, err := svc.ChargeStatus(context.Background(), "charge-1")
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(resp.Charge))
	assert.JSONEq(t, `[{"status":"NEW"},{"status":"COMPLETED"}]`, string(resp.Timeline))

	stored, err := repo.FindByChargeID(context.Background(), "charge-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	// Stage timestamps belong to webhook handling, never to polls.
	assert.Nil(t, stored.ConfirmedAt)
	assert.Empty(t, stored.CryptoAmount)
}

func TestChargeStatusUnknownLocalRecordIsNotAnError(t *testing.T) {
	processor := &fakeProcessor{
		getResp: &coinbase.Charge{
			ID:       "charge-9",
			Timeline: []coinbase.TimelineEntry{{Status: "PENDING"}},
			Raw:      json.RawMessage(`{"id":"charge-9"}`),
		},
	}
	svc, _, _ := newTestService(t, processor)

	_, err := svc.ChargeStatus(context.Background(), "charge-9")
	assert.NoError(t, err)
}

func TestGetByOrderIDRoundTrip(t *testing.T) {
	processor := &fakeProcessor{
		createResp: &coinbase.Charge{ID: "charge-1", HostedURL: "https://x"},
	}
	svc, _, _ := newTestService(t, processor)

	created, err := svc.CreateCharge(context.Background(), domain.CreateChargeRequest{
		Amount:   "42.5",
		Currency: "eur",
		Purpose:  "School supplies",
	})
	require.NoError(t, err)

	donation, err := svc.GetByOrderID(context.Background(), created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, created.OrderID, donation.OrderID)
	assert.Equal(t, "42.5", donation.Amount)
	assert.Equal(t, "EUR", donation.Currency)
	assert.Equal(t, "School supplies", donation.Purpose)

	_, err = svc.GetByOrderID(context.Background(), "donation_MISSING")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderIDsAreUnique(t *testing.T) {
	processor := &fakeProcessor{createResp: &coinbase.Charge{ID: "c", HostedURL: "h"}}
	svc, _, _ := newTestService(t, processor)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		processor.createResp = &coinbase.Charge{ID: fmt.Sprintf("charge-%d", i), HostedURL: "h"}
		resp, err := svc.CreateCharge(context.Background(), domain.CreateChargeRequest{
			Amount:   "1",
			Currency: "USD",
			Purpose:  "x",
		})
		require.NoError(t, err)
		if _, dup := seen[resp.OrderID]; dup {
			t.Fatalf("duplicate order id %s", resp.OrderID)
		}
		seen[resp.OrderID] = struct{}{}
	}
}

func TestChargeStatusUpstreamError(t *testing.T) {
	processor := &fakeProcessor{getErr: errors.New("connection refused")}
	svc, _, _ := newTestService(t, processor)

	_, err := svc.ChargeStatus(context.Background(), "charge-1")
	assert.Error(t, err)
}
