package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/hopelink/givecoin/internal/clock"
	"github.com/hopelink/givecoin/internal/coinbase"
	"github.com/hopelink/givecoin/internal/config"
	"github.com/hopelink/givecoin/internal/donation/domain"
	obsmetrics "github.com/hopelink/givecoin/internal/observability/metrics"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	Processor  coinbase.API
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	cfg        config.Config
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	processor  coinbase.API
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:        p.Cfg,
		log:        p.Log.Named("donation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		processor:  p.Processor,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) CreateCharge(ctx context.Context, req domain.CreateChargeRequest) (domain.CreateChargeResponse, error) {
	amount := strings.TrimSpace(req.Amount.String())
	if amount == "" {
		return domain.CreateChargeResponse{}, domain.ErrMissingAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return domain.CreateChargeResponse{}, domain.ErrMissingCurrency
	}
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		return domain.CreateChargeResponse{}, domain.ErrMissingPurpose
	}

	// The order ID is generated before the processor call and embedded in
	// the charge metadata, so it survives on the processor side even if
	// local state is lost.
	orderID := "donation_" + ulid.Make().String()

	charge, err := s.processor.CreateCharge(ctx, coinbase.ChargeRequest{
		Name:        purpose,
		Description: "Donation for: " + purpose,
		PricingType: "fixed_price",
		LocalPrice: coinbase.LocalPrice{
			Amount:   amount,
			Currency: currency,
		},
		Metadata: map[string]string{
			"order_id":         orderID,
			"customer_email":   strings.TrimSpace(req.DonorEmail),
			"customer_id":      strings.TrimSpace(req.DonorID),
			"donation_purpose": purpose,
		},
		RedirectURL: s.cfg.FrontendURL + "/donation-success",
		CancelURL:   s.cfg.FrontendURL + "/donation-cancelled",
	})
	if err != nil {
		s.log.Error("charge creation failed", zap.String("order_id", orderID), zap.Error(err))
		s.obsMetrics.RecordChargeFailure(ctx, "upstream")
		return domain.CreateChargeResponse{}, err
	}

	now := s.clock.Now()
	donation := &domain.Donation{
		ID:         s.genID.Generate(),
		OrderID:    orderID,
		ChargeID:   charge.ID,
		Amount:     amount,
		Currency:   currency,
		Purpose:    purpose,
		DonorEmail: strings.TrimSpace(req.DonorEmail),
		DonorID:    strings.TrimSpace(req.DonorID),
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, donation); err != nil {
		// The processor charge exists but the local record does not; the
		// order ID in the charge metadata is the recovery handle.
		s.log.Error("failed to store donation record",
			zap.String("charge_id", charge.ID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return domain.CreateChargeResponse{}, err
	}

	s.log.Info("charge created",
		zap.String("charge_id", charge.ID),
		zap.String("order_id", orderID),
		zap.String("currency", currency),
	)
	s.obsMetrics.RecordChargeCreated(ctx, currency)

	return domain.CreateChargeResponse{
		ChargeID:  charge.ID,
		HostedURL: charge.HostedURL,
		OrderID:   orderID,
	}, nil
}

func (s *Service) ChargeStatus(ctx context.Context, chargeID string) (domain.ChargeStatusResponse, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return domain.ChargeStatusResponse{}, domain.ErrInvalidChargeID
	}

	charge, err := s.processor.GetCharge(ctx, chargeID)
	if err != nil {
		return domain.ChargeStatusResponse{}, err
	}

	if status, ok := latestStatus(charge.Timeline); ok {
		// Polls only refresh the status field; stage timestamps and
		// crypto amounts are owned by webhook handling.
		err := s.repo.Transition(ctx, chargeID, func(d *domain.Donation) error {
			d.Status = status
			d.UpdatedAt = s.clock.Now()
			return nil
		})
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.ChargeStatusResponse{}, err
		}
	}

	return domain.ChargeStatusResponse{
		Charge:   charge.Raw,
		Timeline: extractTimeline(charge.Raw),
	}, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Donation, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*domain.Donation, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByOrderID(ctx, orderID)
}

// latestStatus maps the last processor timeline entry onto the donation
// lifecycle. Unknown entries leave the local status untouched.
func latestStatus(timeline []coinbase.TimelineEntry) (string, bool) {
	if len(timeline) == 0 {
		return "", false
	}
	switch strings.ToUpper(strings.TrimSpace(timeline[len(timeline)-1].Status)) {
	case "NEW":
		return domain.StatusCreated, true
	case "PENDING":
		return domain.StatusPending, true
	case "COMPLETED":
		return domain.StatusConfirmed, true
	case "EXPIRED", "CANCELED":
		return domain.StatusFailed, true
	case "UNRESOLVED":
		return domain.StatusDelayed, true
	case "RESOLVED":
		return domain.StatusResolved, true
	default:
		return "", false
	}
}

func extractTimeline(raw json.RawMessage) json.RawMessage {
	var envelope struct {
		Timeline json.RawMessage `json:"timeline"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	return envelope.Timeline
}
