package app

import (
	"gorm.io/gorm"

	"github.com/quillsign/quillsign-backend/internal/logger"
	"github.com/quillsign/quillsign-backend/internal/repos"
)

type Repos struct {
	Envelope        repos.EnvelopeRepo
	EnvelopeSigner  repos.EnvelopeSignerRepo
	AuditEvent      repos.AuditEventRepo
	InvitationToken repos.InvitationTokenRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Envelope:        repos.NewEnvelopeRepo(db, log),
		EnvelopeSigner:  repos.NewEnvelopeSignerRepo(db, log),
		AuditEvent:      repos.NewAuditEventRepo(db, log),
		InvitationToken: repos.NewInvitationTokenRepo(db, log),
	}
}
