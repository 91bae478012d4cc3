package app

import (
	"context"

	"gorm.io/gorm"

	"github.com/quillsign/quillsign-backend/internal/logger"
	"github.com/quillsign/quillsign-backend/internal/platform/objectstore"
	"github.com/quillsign/quillsign-backend/internal/platform/sendgrid"
	"github.com/quillsign/quillsign-backend/internal/services"
)

type Services struct {
	Envelope     services.EnvelopeService
	Document     services.DocumentService
	Token        services.TokenService
	Notification services.NotificationService
	Audit        services.AuditService
	Signer       services.SignerService
	SendEnvelope services.SendEnvelopeUseCase
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	var audit services.AuditService = services.NoopAuditService{}
	if cfg.AuditEnabled {
		audit = services.NewAuditService(log, r.AuditEvent)
	}

	var notification services.NotificationService = services.NoopNotificationService{}
	if cfg.NotificationsEnabled {
		mailer, err := sendgrid.NewFromEnv(log)
		if err != nil {
			log.Warn("Sendgrid init failed, notifications disabled", "error", err)
		} else {
			notification = services.NewNotificationService(log, mailer, cfg.SigningBaseURL)
		}
	}

	envelopeService := services.NewEnvelopeService(db, log, r.Envelope, r.EnvelopeSigner, audit)
	tokenService := services.NewTokenService(log, r.InvitationToken, cfg.JWTSecretKey, cfg.InvitationTTL)
	signerService := services.NewSignerService(db, log, r.Envelope, r.EnvelopeSigner, r.InvitationToken, tokenService, audit)
	sendEnvelope := services.NewSendEnvelopeUseCase(log, envelopeService, tokenService, notification, audit)

	var document services.DocumentService
	store, err := objectstore.NewFromEnv(ctx, log)
	if err != nil {
		log.Warn("Object store init failed, document endpoints unavailable", "error", err)
	} else {
		document = services.NewDocumentService(log, store, r.Envelope)
	}

	return Services{
		Envelope:     envelopeService,
		Document:     document,
		Token:        tokenService,
		Notification: notification,
		Audit:        audit,
		Signer:       signerService,
		SendEnvelope: sendEnvelope,
	}, nil
}
