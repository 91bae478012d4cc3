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

type CreateEnvelopeInput struct {
  TenantID     string
  CreatedBy    uuid.UUID
  Title        string
  Description  string
  SigningOrder string
  Origin       string
  ExpiresAt    *time.Time
}

type AddSignerInput struct {
  Email    string
  FullName string
  Order    int
  UserID   *uuid.UUID
}

type EnvelopeService interface {
  Create(ctx context.Context, in CreateEnvelopeInput) (*types.Envelope, error)
  GetByID(ctx context.Context, envelopeID, userID uuid.UUID) (*types.Envelope, error)
  GetAggregate(ctx context.Context, envelopeID uuid.UUID) (*envelope.SignatureEnvelope, error)
  AddSigner(ctx context.Context, envelopeID, userID uuid.UUID, in AddSignerInput) (*types.EnvelopeSigner, error)
  RemoveSigner(ctx context.Context, envelopeID, userID, signerID uuid.UUID) error
  // TransitionToSent applies the aggregate's send semantics and persists the
  // DRAFT -> READY_FOR_SIGNATURE edge with a conditional write, so two
  // racing sends cannot both win.
  TransitionToSent(ctx context.Context, envelopeID, userID uuid.UUID) (*envelope.SignatureEnvelope, error)
  Cancel(ctx context.Context, envelopeID, userID uuid.UUID) (*envelope.SignatureEnvelope, error)
  MarkExpired(ctx context.Context, envelopeID uuid.UUID) (*envelope.SignatureEnvelope, error)
  GetExternalSigners(ctx context.Context, envelopeID uuid.UUID) ([]*envelope.Signer, error)
}

type envelopeService struct {
  db         *gorm.DB
  log        *logger.Logger
  envRepo    repos.EnvelopeRepo
  signerRepo repos.EnvelopeSignerRepo
  audit      AuditService
}

func NewEnvelopeService(
  db *gorm.DB,
  log *logger.Logger,
  envRepo repos.EnvelopeRepo,
  signerRepo repos.EnvelopeSignerRepo,
  audit AuditService,
) EnvelopeService {
  return &envelopeService{
    db:         db,
    log:        log.With("service", "EnvelopeService"),
    envRepo:    envRepo,
    signerRepo: signerRepo,
    audit:      audit,
  }
}

func (es *envelopeService) Create(ctx context.Context, in CreateEnvelopeInput) (*types.Envelope, error) {
  order := envelope.OwnerFirst()
  if in.SigningOrder != "" {
    parsed, err := envelope.ParseSigningOrder(in.SigningOrder)
    if err != nil {
      return nil, err
    }
    order = parsed
  }
  agg, err := envelope.New(envelope.NewEnvelopeInput{
    TenantID:     in.TenantID,
    CreatedBy:    in.CreatedBy,
    Title:        in.Title,
    Description:  in.Description,
    SigningOrder: order,
    Origin:       envelope.EnvelopeOrigin(in.Origin),
    ExpiresAt:    in.ExpiresAt,
  })
  if err != nil {
    return nil, err
  }
  row := &types.Envelope{
    ID:           agg.GetID(),
    TenantID:     agg.GetTenantID(),
    CreatedBy:    agg.GetCreatedBy(),
    Title:        agg.GetTitle(),
    Description:  agg.GetDescription(),
    Status:       string(agg.GetStatus()),
    SigningOrder: agg.GetSigningOrder().String(),
    Origin:       string(agg.GetOrigin()),
    ExpiresAt:    agg.GetExpiresAt(),
    CreatedAt:    agg.GetCreatedAt(),
    UpdatedAt:    agg.GetUpdatedAt(),
  }
  created, err := es.envRepo.Create(ctx, nil, row)
  if err != nil {
    return nil, fmt.Errorf("create envelope: %w", err)
  }
  es.auditEvent(ctx, created.ID, nil, types.AuditEnvelopeCreated,
    fmt.Sprintf("Envelope %q created", created.Title), in.CreatedBy, nil)
  return created, nil
}

func (es *envelopeService) GetByID(ctx context.Context, envelopeID, userID uuid.UUID) (*types.Envelope, error) {
  row, err := es.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return nil, err
  }
  return row, nil
}

func (es *envelopeService) GetAggregate(ctx context.Context, envelopeID uuid.UUID) (*envelope.SignatureEnvelope, error) {
  row, err := es.envRepo.GetByID(ctx, nil, envelopeID)
  if err != nil {
    return nil, fmt.Errorf("load envelope: %w", err)
  }
  if row == nil {
    return nil, envelope.NewError(envelope.CodeEnvelopeNotFound, "EnvelopeService.GetAggregate",
      fmt.Sprintf("envelope %s not found", envelopeID), nil)
  }
  return envelopeRowToDomain(row)
}

func (es *envelopeService) AddSigner(ctx context.Context, envelopeID, userID uuid.UUID, in AddSignerInput) (*types.EnvelopeSigner, error) {
  row, err := es.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return nil, err
  }
  agg, err := envelopeRowToDomain(row)
  if err != nil {
    return nil, err
  }
  signerUserID := uuid.Nil
  if in.UserID != nil {
    signerUserID = *in.UserID
  }
  signer, err := envelope.NewSigner(envelope.NewSignerInput{
    UserID:   signerUserID,
    Email:    in.Email,
    FullName: in.FullName,
    Order:    in.Order,
    External: signerUserID == uuid.Nil || signerUserID != row.CreatedBy,
  })
  if err != nil {
    return nil, err
  }
  if err := agg.AddSigner(signer); err != nil {
    return nil, err
  }
  signerRow := signerDomainToRow(envelopeID, signer)
  if _, err := es.signerRepo.Create(ctx, nil, []*types.EnvelopeSigner{signerRow}); err != nil {
    return nil, fmt.Errorf("persist signer: %w", err)
  }
  sid := signer.GetID()
  es.auditEvent(ctx, envelopeID, &sid, types.AuditSignerAdded,
    fmt.Sprintf("Signer %s added", signer.GetEmail()), userID, nil)
  return signerRow, nil
}

func (es *envelopeService) RemoveSigner(ctx context.Context, envelopeID, userID, signerID uuid.UUID) error {
  row, err := es.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return err
  }
  agg, err := envelopeRowToDomain(row)
  if err != nil {
    return err
  }
  if err := agg.RemoveSigner(signerID); err != nil {
    return err
  }
  if err := es.signerRepo.DeleteByID(ctx, nil, signerID); err != nil {
    return fmt.Errorf("delete signer: %w", err)
  }
  es.auditEvent(ctx, envelopeID, &signerID, types.AuditSignerRemoved,
    "Signer removed", userID, nil)
  return nil
}

func (es *envelopeService) TransitionToSent(ctx context.Context, envelopeID, userID uuid.UUID) (*envelope.SignatureEnvelope, error) {
  row, err := es.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return nil, err
  }
  agg, err := envelopeRowToDomain(row)
  if err != nil {
    return nil, err
  }
  if err := envelope.AssertLifecycleTransition(agg.GetStatus(), envelope.StatusReadyForSignature); err != nil {
    return nil, err
  }
  if err := agg.Send(); err != nil {
    return nil, err
  }
  updates := map[string]any{
    "status":     string(agg.GetStatus()),
    "sent_at":    agg.GetSentAt(),
    "updated_at": agg.GetUpdatedAt(),
  }
  if err := es.envRepo.UpdateStatusConditional(ctx, nil, envelopeID, string(envelope.StatusDraft), updates); err != nil {
    return nil, err
  }
  return agg, nil
}

func (es *envelopeService) Cancel(ctx context.Context, envelopeID, userID uuid.UUID) (*envelope.SignatureEnvelope, error) {
  row, err := es.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return nil, err
  }
  agg, err := envelopeRowToDomain(row)
  if err != nil {
    return nil, err
  }
  priorStatus := agg.GetStatus()
  if err := agg.Cancel(userID); err != nil {
    return nil, err
  }
  updates := map[string]any{
    "status":       string(agg.GetStatus()),
    "cancelled_at": agg.GetCancelledAt(),
    "cancelled_by": agg.GetCancelledBy(),
    "updated_at":   agg.GetUpdatedAt(),
  }
  if err := es.envRepo.UpdateStatusConditional(ctx, nil, envelopeID, string(priorStatus), updates); err != nil {
    return nil, err
  }
  es.auditEvent(ctx, envelopeID, nil, types.AuditEnvelopeCancelled,
    fmt.Sprintf("Envelope cancelled while %s", priorStatus), userID, nil)
  return agg, nil
}

func (es *envelopeService) MarkExpired(ctx context.Context, envelopeID uuid.UUID) (*envelope.SignatureEnvelope, error) {
  row, err := es.envRepo.GetByID(ctx, nil, envelopeID)
  if err != nil {
    return nil, fmt.Errorf("load envelope: %w", err)
  }
  if row == nil {
    return nil, envelope.NewError(envelope.CodeEnvelopeNotFound, "EnvelopeService.MarkExpired",
      fmt.Sprintf("envelope %s not found", envelopeID), nil)
  }
  agg, err := envelopeRowToDomain(row)
  if err != nil {
    return nil, err
  }
  priorStatus := agg.GetStatus()
  if err := agg.MarkAsExpired(); err != nil {
    return nil, err
  }
  if agg.GetStatus() == priorStatus {
    return agg, nil
  }
  updates := map[string]any{
    "status":     string(agg.GetStatus()),
    "updated_at": agg.GetUpdatedAt(),
  }
  if err := es.envRepo.UpdateStatusConditional(ctx, nil, envelopeID, string(priorStatus), updates); err != nil {
    return nil, err
  }
  es.auditEvent(ctx, envelopeID, nil, types.AuditEnvelopeExpired,
    "Envelope expired", uuid.Nil, nil)
  return agg, nil
}

func (es *envelopeService) GetExternalSigners(ctx context.Context, envelopeID uuid.UUID) ([]*envelope.Signer, error) {
  agg, err := es.GetAggregate(ctx, envelopeID)
  if err != nil {
    return nil, err
  }
  external := make([]*envelope.Signer, 0)
  for _, s := range agg.GetSigners() {
    if s.IsExternal() {
      external = append(external, s)
    }
  }
  return external, nil
}

// loadOwned scopes reads to the envelope owner. A foreign envelope looks the
// same as a missing one.
func (es *envelopeService) loadOwned(ctx context.Context, envelopeID, userID uuid.UUID) (*types.Envelope, error) {
  row, err := es.envRepo.GetByID(ctx, nil, envelopeID)
  if err != nil {
    return nil, fmt.Errorf("load envelope: %w", err)
  }
  if row == nil || row.CreatedBy != userID {
    return nil, envelope.NewError(envelope.CodeEnvelopeNotFound, "EnvelopeService.loadOwned",
      fmt.Sprintf("envelope %s not found", envelopeID), nil)
  }
  return row, nil
}

func (es *envelopeService) auditEvent(ctx context.Context, envelopeID uuid.UUID, signerID *uuid.UUID, eventType, description string, userID uuid.UUID, metadata map[string]any) {
  var actor *uuid.UUID
  if userID != uuid.Nil {
    actor = &userID
  }
  var network requestdata.NetworkContext
  if rd := requestdata.GetRequestData(ctx); rd != nil {
    network = rd.Network
  }
  if err := es.audit.Create(ctx, AuditEventInput{
    EnvelopeID:  envelopeID,
    SignerID:    signerID,
    EventType:   eventType,
    Description: description,
    UserID:      actor,
    Network:     network,
    Metadata:    metadata,
  }); err != nil {
    es.log.Warn("audit event write failed", "envelope_id", envelopeID, "event_type", eventType, "error", err)
  }
}
