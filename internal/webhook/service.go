package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/hopelink/givecoin/internal/clock"
	"github.com/hopelink/givecoin/internal/coinbase"
	"github.com/hopelink/givecoin/internal/config"
	"github.com/hopelink/givecoin/internal/donation/domain"
	obsmetrics "github.com/hopelink/givecoin/internal/observability/metrics"
	"github.com/hopelink/givecoin/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw request
// body, keyed with the shared webhook secret.
const SignatureHeader = "x-cc-webhook-signature"

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
)

// Event is the processor's webhook envelope.
type Event struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	Data EventCharge `json:"data"`
}

type EventCharge struct {
	ID       string             `json:"id"`
	Payments []coinbase.Payment `json:"payments"`
	Metadata map[string]string  `json:"metadata"`
}

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Lifecycle  *config.LifecycleConfigHolder
	Email      email.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	secret     string
	skipVerify bool
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	lifecycle  *config.LifecycleConfigHolder
	email      email.Provider
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) *Service {
	secret := strings.TrimSpace(p.Cfg.Coinbase.WebhookSecret)
	skip := secret == "" && p.Cfg.IsDevelopment()
	if skip {
		p.Log.Warn("webhook signature verification disabled, no secret configured")
	}
	return &Service{
		secret:     secret,
		skipVerify: skip,
		log:        p.Log.Named("webhook"),
		clock:      p.Clock,
		repo:       p.Repo,
		lifecycle:  p.Lifecycle,
		email:      p.Email,
		obsMetrics: p.ObsMetrics,
	}
}

// Verify checks the request signature against the raw body. The comparison
// is constant-time.
func (s *Service) Verify(payload []byte, signature string) error {
	if s.skipVerify {
		return nil
	}
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// Ingest verifies and applies a single webhook delivery. Unknown charges
// and out-of-order events are logged and dropped without error so the
// processor does not retry them.
func (s *Service) Ingest(ctx context.Context, payload []byte, signature string) error {
	if err := s.Verify(payload, signature); err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, "unknown", "invalid_signature")
		return err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		s.obsMetrics.RecordWebhookEvent(ctx, "unknown", "invalid_payload")
		return ErrInvalidPayload
	}
	if strings.TrimSpace(event.Type) == "" || strings.TrimSpace(event.Data.ID) == "" {
		s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "invalid_payload")
		return ErrInvalidPayload
	}

	target, ok := statusForEvent(event.Type)
	if !ok {
		s.log.Info("ignoring unhandled webhook event",
			zap.String("event_type", event.Type),
			zap.String("charge_id", event.Data.ID),
		)
		s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "ignored")
		return nil
	}

	var confirmed *domain.Donation
	err := s.repo.Transition(ctx, event.Data.ID, func(d *domain.Donation) error {
		if d.Status == target {
			// Duplicate delivery, nothing to reapply.
			return nil
		}
		if !s.lifecycle.Get().Allows(d.Status, target) {
			s.log.Warn("dropping out-of-order webhook event",
				zap.String("charge_id", d.ChargeID),
				zap.String("current_status", d.Status),
				zap.String("event_type", event.Type),
			)
			return nil
		}

		now := s.clock.Now()
		d.Status = target
		d.UpdatedAt = now

		switch target {
		case domain.StatusConfirmed:
			if len(event.Data.Payments) > 0 {
				crypto := event.Data.Payments[0].Value.Crypto
				d.CryptoAmount = crypto.Amount
				d.CryptoCurrency = crypto.Currency
			}
			d.ConfirmedAt = &now
			receipt := *d
			confirmed = &receipt
		case domain.StatusFailed:
			d.FailedAt = &now
		case domain.StatusResolved:
			d.ResolvedAt = &now
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("webhook for unknown charge",
				zap.String("charge_id", event.Data.ID),
				zap.String("event_type", event.Type),
			)
			s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "unknown_charge")
			return nil
		}
		s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "error")
		return err
	}

	if confirmed != nil {
		s.sendReceipt(ctx, confirmed)
	}

	s.log.Info("webhook event applied",
		zap.String("charge_id", event.Data.ID),
		zap.String("event_type", event.Type),
		zap.String("status", target),
	)
	s.obsMetrics.RecordWebhookEvent(ctx, event.Type, "applied")
	return nil
}

func (s *Service) sendReceipt(ctx context.Context, d *domain.Donation) {
	if d.DonorEmail == "" {
		return
	}
	body, err := email.RenderReceipt(email.ReceiptData{
		Amount:         d.Amount,
		Currency:       d.Currency,
		Purpose:        d.Purpose,
		CryptoAmount:   d.CryptoAmount,
		CryptoCurrency: d.CryptoCurrency,
		OrderID:        d.OrderID,
	})
	if err != nil {
		s.log.Error("failed to render receipt email", zap.Error(err))
		return
	}
	if err := s.email.Send(ctx, []string{d.DonorEmail}, "Your donation is confirmed", body); err != nil {
		// Receipt delivery is best effort; the donation stays confirmed.
		s.log.Error("failed to send receipt email",
			zap.String("order_id", d.OrderID),
			zap.Error(err),
		)
	}
}

func statusForEvent(eventType string) (string, bool) {
	switch strings.TrimSpace(eventType) {
	case "charge:created":
		return domain.StatusCreated, true
	case "charge:pending":
		return domain.StatusPending, true
	case "charge:confirmed":
		return domain.StatusConfirmed, true
	case "charge:failed":
		return domain.StatusFailed, true
	case "charge:delayed":
		return domain.StatusDelayed, true
	case "charge:resolved":
		return domain.StatusResolved, true
	default:
		return "", false
	}
}
