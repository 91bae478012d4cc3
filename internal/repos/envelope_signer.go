package repos

import (
  "context"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type EnvelopeSignerRepo interface {
  Create(ctx context.Context, tx *gorm.DB, signers []*types.EnvelopeSigner) ([]*types.EnvelopeSigner, error)
  GetByEnvelopeID(ctx context.Context, tx *gorm.DB, envelopeID uuid.UUID) ([]*types.EnvelopeSigner, error)
  Update(ctx context.Context, tx *gorm.DB, signer *types.EnvelopeSigner) (*types.EnvelopeSigner, error)
  UpdateFields(ctx context.Context, tx *gorm.DB, signerID uuid.UUID, updates map[string]any) error
  UpdateBatch(ctx context.Context, tx *gorm.DB, signers []*types.EnvelopeSigner) error
  DeleteByID(ctx context.Context, tx *gorm.DB, signerID uuid.UUID) error
}

type envelopeSignerRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewEnvelopeSignerRepo(db *gorm.DB, baseLog *logger.Logger) EnvelopeSignerRepo {
  return &envelopeSignerRepo{db: db, log: baseLog.With("repo", "EnvelopeSignerRepo")}
}

func (sr *envelopeSignerRepo) Create(ctx context.Context, tx *gorm.DB, signers []*types.EnvelopeSigner) ([]*types.EnvelopeSigner, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }
  if len(signers) == 0 {
    return []*types.EnvelopeSigner{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&signers).Error; err != nil {
    return nil, err
  }
  return signers, nil
}

func (sr *envelopeSignerRepo) GetByEnvelopeID(ctx context.Context, tx *gorm.DB, envelopeID uuid.UUID) ([]*types.EnvelopeSigner, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }
  var results []*types.EnvelopeSigner
  if err := transaction.WithContext(ctx).
    Where("envelope_id = ?", envelopeID).
    Order("order_index ASC, created_at ASC").
    Find(&results).Error; err != nil {
    return nil, err
  }
  return results, nil
}

func (sr *envelopeSignerRepo) Update(ctx context.Context, tx *gorm.DB, signer *types.EnvelopeSigner) (*types.EnvelopeSigner, error) {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }
  if err := transaction.WithContext(ctx).Save(signer).Error; err != nil {
    return nil, err
  }
  return signer, nil
}

func (sr *envelopeSignerRepo) UpdateFields(ctx context.Context, tx *gorm.DB, signerID uuid.UUID, updates map[string]any) error {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }
  return transaction.WithContext(ctx).
    Model(&types.EnvelopeSigner{}).
    Where("id = ?", signerID).
    Updates(updates).Error
}

func (sr *envelopeSignerRepo) UpdateBatch(ctx context.Context, tx *gorm.DB, signers []*types.EnvelopeSigner) error {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }
  for _, s := range signers {
    if err := transaction.WithContext(ctx).Save(s).Error; err != nil {
      return err
    }
  }
  return nil
}

func (sr *envelopeSignerRepo) DeleteByID(ctx context.Context, tx *gorm.DB, signerID uuid.UUID) error {
  transaction := tx
  if transaction == nil {
    transaction = sr.db
  }
  return transaction.WithContext(ctx).
    Where("id = ?", signerID).
    Delete(&types.EnvelopeSigner{}).Error
}
