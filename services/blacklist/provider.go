package blacklist

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/confportal/authcore/config"
	"github.com/confportal/authcore/services/logging"
)

func ProvideRedisClient(cfg *config.Config) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func ProvideBlacklistService(client redis.UniversalClient, cfg *config.Config, logger *logging.Service) *Service {
	return NewService(client, cfg, logger)
}

var Options = fx.Options(
	fx.Provide(ProvideRedisClient),
	fx.Provide(ProvideBlacklistService),
)
