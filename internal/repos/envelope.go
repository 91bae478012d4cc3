package repos

import (
  "context"
  "errors"
  "fmt"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type EnvelopeRepo interface {
  Create(ctx context.Context, tx *gorm.DB, env *types.Envelope) (*types.Envelope, error)
  GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Envelope, error)
  Update(ctx context.Context, tx *gorm.DB, env *types.Envelope) (*types.Envelope, error)
  // UpdateStatusConditional applies updates only while the persisted status
  // still matches expectedStatus. A mismatch means another invocation
  // transitioned first and surfaces as a conflict error.
  UpdateStatusConditional(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedStatus string, updates map[string]any) error
  ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.Envelope, error)
  Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type envelopeRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEnvelopeRepo(db *gorm.DB, baseLog *logger.Logger) EnvelopeRepo {
  return &envelopeRepo{db: db, log: baseLog.With("repo", "EnvelopeRepo")}
}

func (er *envelopeRepo) Create(ctx context.Context, tx *gorm.DB, env *types.Envelope) (*types.Envelope, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  if err := transaction.WithContext(ctx).Create(env).Error; err != nil {
    return nil, err
  }
  return env, nil
}

func (er *envelopeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Envelope, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  var result types.Envelope
  err := transaction.WithContext(ctx).
    Preload("Signers", func(db *gorm.DB) *gorm.DB {
      return db.Order("order_index ASC, created_at ASC")
    }).
    Where("id = ?", id).
    First(&result).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (er *envelopeRepo) Update(ctx context.Context, tx *gorm.DB, env *types.Envelope) (*types.Envelope, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  if err := transaction.WithContext(ctx).
    Session(&gorm.Session{FullSaveAssociations: false}).
    Omit("Signers").
    Save(env).Error; err != nil {
    return nil, err
  }
  return env, nil
}

func (er *envelopeRepo) UpdateStatusConditional(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedStatus string, updates map[string]any) error {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  res := transaction.WithContext(ctx).
    Model(&types.Envelope{}).
    Where("id = ? AND status = ?", id, expectedStatus).
    Updates(updates)
  if res.Error != nil {
    return res.Error
  }
  if res.RowsAffected == 0 {
    return envelope.NewError(envelope.CodeConflict, "EnvelopeRepo.UpdateStatusConditional",
      fmt.Sprintf("envelope %s no longer in status %s", id, expectedStatus), nil)
  }
  return nil
}

func (er *envelopeRepo) ListExpired(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]*types.Envelope, error) {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  if limit <= 0 {
    limit = 100
  }
  var results []*types.Envelope
  err := transaction.WithContext(ctx).
    Where("expires_at IS NOT NULL AND expires_at < ?", now).
    Where("status IN ?", []string{string(envelope.StatusDraft), string(envelope.StatusReadyForSignature)}).
    Limit(limit).
    Find(&results).Error
  if err != nil {
    return nil, err
  }
  return results, nil
}

func (er *envelopeRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = er.db
  }
  return transaction.WithContext(ctx).
    Where("id = ?", id).
    Delete(&types.Envelope{}).Error
}
