package email

import (
	"context"

	"go.uber.org/zap"
)

// Provider sends transactional mail. Implementations must be safe for
// concurrent use.
type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
}

// NoOpProvider stands in when no SMTP host is configured. It logs the
// intent and drops the message.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	_ = ctx
	_ = htmlBody
	p.log.Info("email delivery skipped, no SMTP host configured",
		zap.Strings("to", to),
		zap.String("subject", subject),
	)
	return nil
}
