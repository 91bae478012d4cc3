package app

import (
	"github.com/quillsign/quillsign-backend/internal/handlers"
	"github.com/quillsign/quillsign-backend/internal/logger"
)

type Handlers struct {
	Envelope *handlers.EnvelopeHandler
	Signing  *handlers.SigningHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Envelope: handlers.NewEnvelopeHandler(log, services.Envelope, services.SendEnvelope, services.Document, services.Audit),
		Signing:  handlers.NewSigningHandler(log, services.Signer),
	}
}
