package donation

import (
	"github.com/hopelink/givecoin/internal/donation/repository"
	"github.com/hopelink/givecoin/internal/donation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("donation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
