package app

import (
	"github.com/gin-gonic/gin"

	"github.com/quillsign/quillsign-backend/internal/server"
)

func wireRouter(cfg Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:           cfg.ServiceName,
		AllowedOrigins:        cfg.AllowedOrigins,
		EnvelopeHandler:       handlers.Envelope,
		SigningHandler:        handlers.Signing,
		AuthMiddleware:        middleware.Auth,
		IdempotencyMiddleware: middleware.Idempotency,
	})
}
