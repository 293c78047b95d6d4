package db_fx

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"premia/internal/infra"
)

var Module = fx.Options(
	fx.Provide(provideDB, provideRedis),
	fx.Invoke(closeOnShutdown),
)

func provideDB() *gorm.DB {
	return infra.InitPostgresql()
}

func provideRedis() *redis.Client {
	return infra.InitRedis()
}

func closeOnShutdown(lc fx.Lifecycle, db *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			infra.ClosePostgresql(db)
			return nil
		},
	})
}
