package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type AuditEventRepo interface {
  Create(ctx context.Context, tx *gorm.DB, event *types.AuditEvent) (*types.AuditEvent, error)
  ListByEnvelopeID(ctx context.Context, tx *gorm.DB, envelopeID uuid.UUID) ([]*types.AuditEvent, error)
}

type auditEventRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewAuditEventRepo(db *gorm.DB, baseLog *logger.Logger) AuditEventRepo {
  return &auditEventRepo{db: db, log: baseLog.With("repo", "AuditEventRepo")}
}

func (ar *auditEventRepo) Create(ctx context.Context, tx *gorm.DB, event *types.AuditEvent) (*types.AuditEvent, error) {
  transaction := tx
  if transaction == nil {
    transaction = ar.db
  }
  if event.ID == uuid.Nil {
    event.ID = uuid.New()
  }
  if err := transaction.WithContext(ctx).Create(event).Error; err != nil {
    return nil, err
  }
  return event, nil
}

func (ar *auditEventRepo) ListByEnvelopeID(ctx context.Context, tx *gorm.DB, envelopeID uuid.UUID) ([]*types.AuditEvent, error) {
  transaction := tx
  if transaction == nil {
    transaction = ar.db
  }
  var results []*types.AuditEvent
  if err := transaction.WithContext(ctx).
    Where("envelope_id = ?", envelopeID).
    Order("created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}
