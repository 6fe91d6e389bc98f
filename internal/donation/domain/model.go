package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Donation tracks one donation attempt from charge creation through the
// processor-driven status lifecycle. ChargeID is assigned exactly once, when
// the processor accepts the charge, and is the lookup key for webhook events.
type Donation struct {
	ID       snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID  string       `json:"order_id" gorm:"type:text;not null;uniqueIndex"`
	ChargeID string       `json:"charge_id" gorm:"type:text;not null;uniqueIndex"`

	Amount     string `json:"amount" gorm:"type:text;not null"`
	Currency   string `json:"currency" gorm:"type:text;not null"`
	Purpose    string `json:"purpose" gorm:"type:text;not null"`
	DonorEmail string `json:"donor_email,omitempty" gorm:"type:text"`
	DonorID    string `json:"donor_id,omitempty" gorm:"type:text"`

	Status string `json:"status" gorm:"type:text;not null;index"`

	CryptoAmount   string `json:"crypto_amount,omitempty" gorm:"type:text"`
	CryptoCurrency string `json:"crypto_currency,omitempty" gorm:"type:text"`

	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

func (Donation) TableName() string { return "donations" }

const (
	StatusPending   = "pending"
	StatusCreated   = "created"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"
	StatusDelayed   = "delayed"
	StatusResolved  = "resolved"
)

// KnownStatus reports whether a status value belongs to the lifecycle.
func KnownStatus(status string) bool {
	switch status {
	case StatusPending, StatusCreated, StatusConfirmed, StatusFailed, StatusDelayed, StatusResolved:
		return true
	default:
		return false
	}
}
