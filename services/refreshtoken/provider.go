package refreshtoken

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/services/logging"
)

func ProvideStore(db *gorm.DB) Store {
	return NewGormStore(db)
}

func ProvideTracker(store Store, logger *logging.Service) *Tracker {
	return NewTracker(store, logger)
}

func ProvideRefreshTokenService(store Store, tracker *Tracker, cfg *config.Config, logger *logging.Service) *Service {
	service := NewService(store, tracker, cfg, logger)

	if cfg.RefreshToken.CleanupInterval > 0 {
		service.StartCleanupWorker()
	}

	return service
}

var Options = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideTracker),
	fx.Provide(ProvideRefreshTokenService),
)
