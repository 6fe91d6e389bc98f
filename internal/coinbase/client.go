package coinbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hopelink/givecoin/internal/config"
	"go.uber.org/zap"
)

// API is the subset of the Coinbase Commerce API the gateway depends on.
type API interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
}

// ChargeRequest is the processor-facing charge creation payload.
type ChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  LocalPrice        `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url"`
	CancelURL   string            `json:"cancel_url"`
}

type LocalPrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type TimelineEntry struct {
	Time   time.Time `json:"time"`
	Status string    `json:"status"`
}

type CryptoValue struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type PaymentValue struct {
	Crypto CryptoValue `json:"crypto"`
}

type Payment struct {
	Value PaymentValue `json:"value"`
}

// Charge is the processor's charge object. Raw carries the untouched JSON
// for pass-through responses.
type Charge struct {
	ID        string          `json:"id"`
	HostedURL string          `json:"hosted_url"`
	Timeline  []TimelineEntry `json:"timeline"`
	Payments  []Payment       `json:"payments"`

	Raw json.RawMessage `json:"-"`
}

// APIError is a processor-reported failure, surfaced to callers with the
// processor's own error detail.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("coinbase: request failed with status %d", e.StatusCode)
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// Client talks to the Coinbase Commerce REST API.
type Client struct {
	baseURL    string
	apiKey     string
	apiVersion string
	httpc      *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:    cfg.Coinbase.BaseURL,
		apiKey:     cfg.Coinbase.APIKey,
		apiVersion: cfg.Coinbase.APIVersion,
		httpc:      &http.Client{Timeout: 30 * time.Second},
		log:        log.Named("coinbase.client"),
	}
}

func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("coinbase: encode charge request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/charges", bytes.NewReader(body))
}

func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	return c.do(ctx, http.MethodGet, "/charges/"+chargeID, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*Charge, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CC-Api-Key", c.apiKey)
	req.Header.Set("X-CC-Version", c.apiVersion)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coinbase: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coinbase: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.Unmarshal(payload, &envelope); err == nil {
			apiErr.Type = envelope.Error.Type
			apiErr.Message = envelope.Error.Message
		}
		c.log.Warn("coinbase request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("error_type", apiErr.Type),
		)
		return nil, apiErr
	}

	var envelope dataEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("coinbase: decode response: %w", err)
	}

	var charge Charge
	if err := json.Unmarshal(envelope.Data, &charge); err != nil {
		return nil, fmt.Errorf("coinbase: decode charge: %w", err)
	}
	charge.Raw = envelope.Data
	return &charge, nil
}
