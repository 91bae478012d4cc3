package services

import (
  "context"
  "encoding/json"
  "fmt"

  "github.com/google/uuid"
  "gorm.io/datatypes"

  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/repos"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type AuditEventInput struct {
  TenantID    string
  EnvelopeID  uuid.UUID
  SignerID    *uuid.UUID
  EventType   string
  Description string
  UserID      *uuid.UUID
  UserEmail   string
  Network     requestdata.NetworkContext
  Metadata    map[string]any
}

// AuditService records lifecycle events on the envelope's audit trail.
type AuditService interface {
  Create(ctx context.Context, in AuditEventInput) error
  ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*types.AuditEvent, error)
}

type auditService struct {
  log  *logger.Logger
  repo repos.AuditEventRepo
}

func NewAuditService(log *logger.Logger, repo repos.AuditEventRepo) AuditService {
  return &auditService{log: log.With("service", "AuditService"), repo: repo}
}

func (as *auditService) Create(ctx context.Context, in AuditEventInput) error {
  var metadata datatypes.JSON
  if in.Metadata != nil {
    raw, err := json.Marshal(in.Metadata)
    if err != nil {
      return fmt.Errorf("marshal audit metadata: %w", err)
    }
    metadata = datatypes.JSON(raw)
  }
  event := &types.AuditEvent{
    ID:          uuid.New(),
    TenantID:    in.TenantID,
    EnvelopeID:  in.EnvelopeID,
    SignerID:    in.SignerID,
    EventType:   in.EventType,
    Description: in.Description,
    UserID:      in.UserID,
    UserEmail:   in.UserEmail,
    IPAddress:   in.Network.IPAddress,
    UserAgent:   in.Network.UserAgent,
    Country:     in.Network.Country,
    Metadata:    metadata,
  }
  if _, err := as.repo.Create(ctx, nil, event); err != nil {
    return fmt.Errorf("create audit event: %w", err)
  }
  return nil
}

func (as *auditService) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*types.AuditEvent, error) {
  return as.repo.ListByEnvelopeID(ctx, nil, envelopeID)
}

// NoopAuditService satisfies AuditService when the audit trail is disabled
// at composition time, keeping call sites unconditional.
type NoopAuditService struct{}

func (NoopAuditService) Create(ctx context.Context, in AuditEventInput) error { return nil }
func (NoopAuditService) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*types.AuditEvent, error) {
  return []*types.AuditEvent{}, nil
}
