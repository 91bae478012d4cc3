package app

import (
	"context"
	"fmt"

	"github.com/quillsign/quillsign-backend/internal/idempotency"
	"github.com/quillsign/quillsign-backend/internal/logger"
	"github.com/quillsign/quillsign-backend/internal/middleware"
)

type Middleware struct {
	Auth        *middleware.AuthMiddleware
	Idempotency *middleware.IdempotencyMiddleware
}

func wireMiddleware(ctx context.Context, log *logger.Logger, cfg Config) (Middleware, error) {
	log.Info("Wiring middleware...")
	rdb, err := idempotency.NewRedisClientFromEnv(ctx)
	if err != nil {
		return Middleware{}, fmt.Errorf("init redis: %w", err)
	}
	store, err := idempotency.NewRedisStore(log, rdb)
	if err != nil {
		return Middleware{}, err
	}
	runner, err := idempotency.NewRunner(log, store, cfg.IdempotencyTTL)
	if err != nil {
		return Middleware{}, err
	}
	return Middleware{
		Auth:        middleware.NewAuthMiddleware(log, cfg.JWTSecretKey),
		Idempotency: middleware.NewIdempotencyMiddleware(log, runner),
	}, nil
}
