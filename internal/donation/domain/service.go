package domain

import (
	"context"
	"encoding/json"
	"errors"
)

type CreateChargeRequest struct {
	// Amount keeps the donor's literal value and is passed through to
	// the processor verbatim; no range check is performed.
	Amount     json.Number `json:"amount"`
	Currency   string      `json:"currency"`
	Purpose    string      `json:"productName"`
	DonorEmail string      `json:"customerEmail"`
	DonorID    string      `json:"customerId"`
}

type CreateChargeResponse struct {
	ChargeID  string
	HostedURL string
	OrderID   string
}

type ChargeStatusResponse struct {
	// Charge is the processor's charge object, passed through untouched.
	Charge   json.RawMessage
	Timeline json.RawMessage
}

type Service interface {
	CreateCharge(ctx context.Context, req CreateChargeRequest) (CreateChargeResponse, error)
	ChargeStatus(ctx context.Context, chargeID string) (ChargeStatusResponse, error)
	List(ctx context.Context) ([]*Donation, error)
	GetByOrderID(ctx context.Context, orderID string) (*Donation, error)
}

var (
	ErrMissingAmount   = errors.New("missing_amount")
	ErrMissingCurrency = errors.New("missing_currency")
	ErrMissingPurpose  = errors.New("missing_purpose")
	ErrInvalidChargeID = errors.New("invalid_charge_id")
	ErrNotFound        = errors.New("not_found")
	ErrAlreadyExists   = errors.New("already_exists")
)
