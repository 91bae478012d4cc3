package repos

import (
  "context"
  "errors"
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"

  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type InvitationTokenRepo interface {
  CreateBatch(ctx context.Context, tx *gorm.DB, tokens []*types.InvitationToken) ([]*types.InvitationToken, error)
  GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.InvitationToken, error)
  MarkUsed(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID, usedAt time.Time) error
  // RevokeActiveForEnvelope supersedes outstanding tokens before a resend
  // issues fresh ones.
  RevokeActiveForEnvelope(ctx context.Context, tx *gorm.DB, envelopeID uuid.UUID, revokedAt time.Time) error
}

type invitationTokenRepo struct {
  db  *gorm.DB
  log *logger.Logger
}

func NewInvitationTokenRepo(db *gorm.DB, baseLog *logger.Logger) InvitationTokenRepo {
  return &invitationTokenRepo{db: db, log: baseLog.With("repo", "InvitationTokenRepo")}
}

func (tr *invitationTokenRepo) CreateBatch(ctx context.Context, tx *gorm.DB, tokens []*types.InvitationToken) ([]*types.InvitationToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  if len(tokens) == 0 {
    return []*types.InvitationToken{}, nil
  }
  if err := transaction.WithContext(ctx).Create(&tokens).Error; err != nil {
    return nil, err
  }
  return tokens, nil
}

func (tr *invitationTokenRepo) GetByToken(ctx context.Context, tx *gorm.DB, token string) (*types.InvitationToken, error) {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  var result types.InvitationToken
  err := transaction.WithContext(ctx).
    Where("token = ?", token).
    First(&result).Error
  if errors.Is(err, gorm.ErrRecordNotFound) {
    return nil, nil
  }
  if err != nil {
    return nil, err
  }
  return &result, nil
}

func (tr *invitationTokenRepo) MarkUsed(ctx context.Context, tx *gorm.DB, tokenID uuid.UUID, usedAt time.Time) error {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  return transaction.WithContext(ctx).
    Model(&types.InvitationToken{}).
    Where("id = ? AND used_at IS NULL", tokenID).
    Updates(map[string]any{"used_at": usedAt, "updated_at": usedAt}).Error
}

func (tr *invitationTokenRepo) RevokeActiveForEnvelope(ctx context.Context, tx *gorm.DB, envelopeID uuid.UUID, revokedAt time.Time) error {
  transaction := tx
  if transaction == nil {
    transaction = tr.db
  }
  return transaction.WithContext(ctx).
    Model(&types.InvitationToken{}).
    Where("envelope_id = ? AND used_at IS NULL AND revoked_at IS NULL", envelopeID).
    Updates(map[string]any{"revoked_at": revokedAt, "updated_at": revokedAt}).Error
}
