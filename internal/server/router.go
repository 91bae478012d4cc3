package server

import (
  "github.com/gin-contrib/cors"
  "github.com/gin-gonic/gin"
  "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

  "github.com/quillsign/quillsign-backend/internal/handlers"
  "github.com/quillsign/quillsign-backend/internal/middleware"
)

type RouterConfig struct {
  ServiceName            string
  AllowedOrigins         []string
  EnvelopeHandler        *handlers.EnvelopeHandler
  SigningHandler         *handlers.SigningHandler
  AuthMiddleware         *middleware.AuthMiddleware
  IdempotencyMiddleware  *middleware.IdempotencyMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
  router := gin.Default()
  router.Use(otelgin.Middleware(cfg.ServiceName))

  // Cors
  origins := cfg.AllowedOrigins
  if len(origins) == 0 {
    origins = []string{"http://localhost:3000"}
  }
  router.Use(cors.New(cors.Config{
    AllowOrigins:     origins,
    AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
    AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
    AllowCredentials: true,
  }))

// ===============
// || Public    ||
// ===============
  router.GET("/healthcheck", handlers.HealthCheck)
  signing := router.Group("/api/signing")
  {
    signing.POST("/sign", cfg.SigningHandler.Sign)
    signing.POST("/decline", cfg.SigningHandler.Decline)
  }

// ===============
// || Protected ||
// ===============
  protected := router.Group("/api")
  protected.Use(cfg.AuthMiddleware.RequireAuth())
  // Envelopes
  protected.POST("/envelopes", cfg.EnvelopeHandler.Create)
  protected.GET("/envelopes/:id", cfg.EnvelopeHandler.Get)
  protected.POST("/envelopes/:id/signers", cfg.EnvelopeHandler.AddSigner)
  protected.DELETE("/envelopes/:id/signers/:signerID", cfg.EnvelopeHandler.RemoveSigner)
  protected.POST("/envelopes/:id/send", cfg.IdempotencyMiddleware.Guard("envelope.send"), cfg.EnvelopeHandler.Send)
  protected.POST("/envelopes/:id/cancel", cfg.EnvelopeHandler.Cancel)
  protected.GET("/envelopes/:id/audit", cfg.EnvelopeHandler.ListAuditEvents)
  // Documents
  protected.PUT("/envelopes/:id/document", cfg.EnvelopeHandler.UploadDocument)
  protected.GET("/envelopes/:id/document", cfg.EnvelopeHandler.DownloadSource)
  protected.GET("/envelopes/:id/signed-document", cfg.EnvelopeHandler.DownloadSigned)

  return router
}
