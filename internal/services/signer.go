package services

import (
  "context"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/repos"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
  "github.com/quillsign/quillsign-backend/internal/types"
)

// SignerService is the signer-scoped entry point: an invitation token, not a
// session, authorizes sign/decline.
type SignerService interface {
  SignByToken(ctx context.Context, token string, consentGiven bool) (*envelope.SignatureEnvelope, error)
  DeclineByToken(ctx context.Context, token, reason string) (*envelope.SignatureEnvelope, error)
}

type signerService struct {
  db         *gorm.DB
  log        *logger.Logger
  envRepo    repos.EnvelopeRepo
  signerRepo repos.EnvelopeSignerRepo
  tokenRepo  repos.InvitationTokenRepo
  tokens     TokenService
  audit      AuditService
}

func NewSignerService(
  db *gorm.DB,
  log *logger.Logger,
  envRepo repos.EnvelopeRepo,
  signerRepo repos.EnvelopeSignerRepo,
  tokenRepo repos.InvitationTokenRepo,
  tokens TokenService,
  audit AuditService,
) SignerService {
  return &signerService{
    db:         db,
    log:        log.With("service", "SignerService"),
    envRepo:    envRepo,
    signerRepo: signerRepo,
    tokenRepo:  tokenRepo,
    tokens:     tokens,
    audit:      audit,
  }
}

func (ss *signerService) SignByToken(ctx context.Context, token string, consentGiven bool) (*envelope.SignatureEnvelope, error) {
  return ss.applySignerTransition(ctx, token, func(agg *envelope.SignatureEnvelope, signerID uuid.UUID) error {
    if consentGiven {
      for _, s := range agg.GetSigners() {
        if s.GetID() == signerID {
          s.GiveConsent(time.Now().UTC())
        }
      }
    }
    return agg.UpdateSignerStatus(signerID, envelope.SignerSigned)
  }, types.AuditSignerSigned, "Signer signed the envelope")
}

func (ss *signerService) DeclineByToken(ctx context.Context, token, reason string) (*envelope.SignatureEnvelope, error) {
  return ss.applySignerTransition(ctx, token, func(agg *envelope.SignatureEnvelope, signerID uuid.UUID) error {
    return agg.DeclineBySigner(signerID, reason)
  }, types.AuditSignerDeclined, "Signer declined the envelope")
}

func (ss *signerService) applySignerTransition(
  ctx context.Context,
  token string,
  transition func(agg *envelope.SignatureEnvelope, signerID uuid.UUID) error,
  eventType, description string,
) (*envelope.SignatureEnvelope, error) {
  tokenRow, err := ss.tokens.ValidateInvitationToken(ctx, token)
  if err != nil {
    return nil, err
  }

  row, err := ss.envRepo.GetByID(ctx, nil, tokenRow.EnvelopeID)
  if err != nil {
    return nil, fmt.Errorf("load envelope: %w", err)
  }
  if row == nil {
    return nil, envelope.NewError(envelope.CodeEnvelopeNotFound, "SignerService.applySignerTransition",
      fmt.Sprintf("envelope %s not found", tokenRow.EnvelopeID), nil)
  }
  agg, err := envelopeRowToDomain(row)
  if err != nil {
    return nil, err
  }
  priorStatus := agg.GetStatus()

  if err := transition(agg, tokenRow.SignerID); err != nil {
    return nil, err
  }

  if err := ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    for _, s := range agg.GetSigners() {
      if s.GetID() != tokenRow.SignerID {
        continue
      }
      signerUpdates := map[string]any{
        "status":         string(s.GetStatus()),
        "consent_given":  s.ConsentGiven(),
        "consent_at":     s.ConsentAt(),
        "signed_at":      s.SignedAt(),
        "declined_at":    s.DeclinedAt(),
        "decline_reason": s.DeclineReason(),
        "updated_at":     time.Now().UTC(),
      }
      if err := ss.signerRepo.UpdateFields(ctx, tx, s.GetID(), signerUpdates); err != nil {
        return fmt.Errorf("persist signer: %w", err)
      }
    }
    updates := map[string]any{
      "status":     string(agg.GetStatus()),
      "updated_at": agg.GetUpdatedAt(),
    }
    if agg.GetCompletedAt() != nil {
      updates["completed_at"] = agg.GetCompletedAt()
    }
    if agg.GetDeclinedAt() != nil {
      updates["declined_at"] = agg.GetDeclinedAt()
      updates["declined_by_signer_id"] = agg.GetDeclinedBySignerID()
      updates["declined_reason"] = agg.GetDeclinedReason()
    }
    if err := ss.envRepo.UpdateStatusConditional(ctx, tx, agg.GetID(), string(priorStatus), updates); err != nil {
      return err
    }
    return ss.tokenRepo.MarkUsed(ctx, tx, tokenRow.ID, time.Now().UTC())
  }); err != nil {
    return nil, err
  }

  signerID := tokenRow.SignerID
  network := requestdata.NetworkContext{}
  if rd := requestdata.GetRequestData(ctx); rd != nil {
    network = rd.Network
  }
  if err := ss.audit.Create(ctx, AuditEventInput{
    TenantID:    row.TenantID,
    EnvelopeID:  agg.GetID(),
    SignerID:    &signerID,
    EventType:   eventType,
    Description: description,
    Network:     network,
  }); err != nil {
    return nil, err
  }
  if agg.GetStatus() == envelope.StatusCompleted && priorStatus != envelope.StatusCompleted {
    if err := ss.audit.Create(ctx, AuditEventInput{
      TenantID:    row.TenantID,
      EnvelopeID:  agg.GetID(),
      EventType:   types.AuditEnvelopeCompleted,
      Description: "All signers signed, envelope completed",
      Network:     network,
    }); err != nil {
      return nil, err
    }
  }
  if agg.GetStatus() == envelope.StatusDeclined && priorStatus != envelope.StatusDeclined {
    if err := ss.audit.Create(ctx, AuditEventInput{
      TenantID:    row.TenantID,
      EnvelopeID:  agg.GetID(),
      SignerID:    &signerID,
      EventType:   types.AuditEnvelopeDeclined,
      Description: "Envelope declined by signer",
      Network:     network,
    }); err != nil {
      return nil, err
    }
  }
  return agg, nil
}
