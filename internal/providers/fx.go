package providers

import (
	"github.com/hopelink/givecoin/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)
