package coinbase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hopelink/givecoin/internal/config"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Config{
		Coinbase: config.CoinbaseConfig{
			BaseURL:    server.URL,
			APIKey:     "test-key",
			APIVersion: "2018-03-22",
		},
	}
	return NewClient(cfg, zap.NewNop())
}

func TestCreateChargeSendsAuthHeadersAndDecodesData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/charges" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-CC-Api-Key") != "test-key" {
			t.Fatalf("expected api key header, got %q", r.Header.Get("X-CC-Api-Key"))
		}
		if r.Header.Get("X-CC-Version") != "2018-03-22" {
			t.Fatalf("expected version header, got %q", r.Header.Get("X-CC-Version"))
		}

		var req ChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.PricingType != "fixed_price" {
			t.Fatalf("expected fixed_price, got %s", req.PricingType)
		}
		if req.Metadata["order_id"] == "" {
			t.Fatal("expected order_id in metadata")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"charge-abc","hosted_url":"https://commerce.coinbase.com/charges/abc"}}`))
	})

	charge, err := client.CreateCharge(context.Background(), ChargeRequest{
		Name:        "Clean water",
		PricingType: "fixed_price",
		LocalPrice:  LocalPrice{Amount: "25", Currency: "USD"},
		Metadata:    map[string]string{"order_id": "donation_01ARZ"},
	})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if charge.ID != "charge-abc" {
		t.Fatalf("expected charge id charge-abc, got %s", charge.ID)
	}
	if charge.HostedURL != "https://commerce.coinbase.com/charges/abc" {
		t.Fatalf("unexpected hosted url %s", charge.HostedURL)
	}
	if len(charge.Raw) == 0 {
		t.Fatal("expected raw charge payload to be retained")
	}
}

func TestCreateChargeSurfacesProcessorErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request","message":"missing pricing_type"}}`))
	})

	_, err := client.CreateCharge(context.Background(), ChargeRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "missing pricing_type" {
		t.Fatalf("expected processor detail, got %q", apiErr.Message)
	}
	if apiErr.Type != "invalid_request" {
		t.Fatalf("expected processor error type, got %q", apiErr.Type)
	}
}

func TestGetChargeDecodesTimeline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges/charge-abc" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"data":{"id":"charge-abc","timeline":[{"status":"NEW"},{"status":"PENDING"}]}}`))
	})

	charge, err := client.GetCharge(context.Background(), "charge-abc")
	if err != nil {
		t.Fatalf("get charge: %v", err)
	}
	if len(charge.Timeline) != 2 {
		t.Fatalf("expected 2 timeline entries, got %d", len(charge.Timeline))
	}
	if charge.Timeline[1].Status != "PENDING" {
		t.Fatalf("expected last status PENDING, got %s", charge.Timeline[1].Status)
	}
}
