package coinbase

import (
	"github.com/hopelink/givecoin/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("coinbase",
	fx.Provide(NewAPI),
)

func NewAPI(cfg config.Config, log *zap.Logger) API {
	return NewClient(cfg, log)
}
