package services

import (
  "context"
  "fmt"

  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type SendEnvelopeInput struct {
  EnvelopeID uuid.UUID
  UserID     uuid.UUID
  TenantID   string
  Network    requestdata.NetworkContext
  Options    *envelope.SendOptions
}

type SendEnvelopeResult struct {
  Success         bool          `json:"success"`
  Message         string        `json:"message"`
  EnvelopeID      uuid.UUID     `json:"envelope_id"`
  Status          string        `json:"status"`
  TokensGenerated int           `json:"tokens_generated"`
  SignersNotified int           `json:"signers_notified"`
  Invites         []SignerToken `json:"invites"`
}

// SendEnvelopeUseCase runs the send command as a strict sequence: status
// transition, token issuance, notification dispatch, audit event. Every step
// failure aborts the rest and propagates unchanged; there is no compensating
// rollback. A notification failure after tokens were issued leaves the
// envelope sent with unsent invitations, which the idempotency runner plus
// token supersession make safe to retry.
type SendEnvelopeUseCase interface {
  Execute(ctx context.Context, in SendEnvelopeInput) (*SendEnvelopeResult, error)
}

type sendEnvelopeUseCase struct {
  log           *logger.Logger
  envelopes     EnvelopeService
  tokens        TokenService
  notifications NotificationService
  audit         AuditService
}

func NewSendEnvelopeUseCase(
  log *logger.Logger,
  envelopes EnvelopeService,
  tokens TokenService,
  notifications NotificationService,
  audit AuditService,
) SendEnvelopeUseCase {
  return &sendEnvelopeUseCase{
    log:           log.With("usecase", "SendEnvelope"),
    envelopes:     envelopes,
    tokens:        tokens,
    notifications: notifications,
    audit:         audit,
  }
}

func (uc *sendEnvelopeUseCase) Execute(ctx context.Context, in SendEnvelopeInput) (*SendEnvelopeResult, error) {
  agg, err := uc.envelopes.TransitionToSent(ctx, in.EnvelopeID, in.UserID)
  if err != nil {
    return nil, err
  }

  external, err := uc.envelopes.GetExternalSigners(ctx, in.EnvelopeID)
  if err != nil {
    return nil, err
  }

  targets := envelope.SelectTargetSigners(external, in.Options)

  invites, err := uc.tokens.GenerateInvitationTokensForSigners(ctx, in.EnvelopeID, targets, ActorContext{
    UserID:  in.UserID,
    Network: in.Network,
  })
  if err != nil {
    return nil, err
  }

  if err := uc.notifications.SendSignerInvitations(ctx, agg, invites, in.Options); err != nil {
    return nil, err
  }

  sendToAll := in.Options == nil || in.Options.SendToAll
  if err := uc.audit.Create(ctx, AuditEventInput{
    TenantID:    in.TenantID,
    EnvelopeID:  in.EnvelopeID,
    EventType:   types.AuditEnvelopeSent,
    Description: fmt.Sprintf("Envelope sent to %d external signers", len(external)),
    UserID:      &in.UserID,
    Network:     in.Network,
    Metadata: map[string]any{
      "envelope_id":           in.EnvelopeID.String(),
      "external_signer_count": len(external),
      "tokens_generated":      len(invites),
      "send_to_all":           sendToAll,
    },
  }); err != nil {
    return nil, err
  }

  uc.log.Info("envelope sent",
    "envelope_id", in.EnvelopeID,
    "external_signers", len(external),
    "tokens_generated", len(invites))

  return &SendEnvelopeResult{
    Success:         true,
    Message:         fmt.Sprintf("Envelope sent to %d external signers", len(external)),
    EnvelopeID:      in.EnvelopeID,
    Status:          string(agg.GetStatus()),
    TokensGenerated: len(invites),
    SignersNotified: len(targets),
    Invites:         invites,
  }, nil
}
