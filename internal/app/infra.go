package app

import (
	"context"
	"errors"
	"fmt"

	"otp-gateway/internal/config"
	"otp-gateway/internal/db"
	"otp-gateway/internal/logger"
	"otp-gateway/internal/redis"
)

type Infra struct {
	// DB is nil when no DATABASE_DSN is configured.
	DB    *db.DB
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	redisClient, err := redis.New(ctx, redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", map[string]any{
		"addr": cfg.RedisAddr,
	})

	infra := &Infra{Redis: redisClient}

	if cfg.DatabaseDSN == "" {
		logger.Info("audit trail disabled, no database configured", nil)
		return infra, nil
	}

	sqlDB, err := db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("database: %w", err)
	}
	infra.DB = sqlDB

	logger.Info("database ready", nil)

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	errs = append(errs, i.Redis.Close())
	return errors.Join(errs...)
}
