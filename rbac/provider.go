package rbac

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/confportal/authcore/services/logging"
	"github.com/confportal/authcore/services/password"
)

func ProvideSeeder(db *gorm.DB, logger *logging.Service) *Seeder {
	return NewSeeder(db, logger)
}

func ProvideProvisioner(db *gorm.DB, passwordService *password.Service, logger *logging.Service) *Provisioner {
	return NewProvisioner(db, passwordService, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideSeeder),
	fx.Provide(ProvideProvisioner),
)
