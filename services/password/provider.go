package password

import (
	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/services/logging"
	"go.uber.org/fx"
)

func ProvidePasswordService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(cfg, logger)
}

var Options = fx.Options(
	fx.Provide(ProvidePasswordService),
)
