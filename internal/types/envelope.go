package types

import (
  "time"

  "github.com/google/uuid"
)

type Envelope struct {
  ID                 uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
  TenantID           string           `gorm:"index;not null;column:tenant_id" json:"tenant_id"`
  CreatedBy          uuid.UUID        `gorm:"index;not null;column:created_by" json:"created_by"`
  Title              string           `gorm:"not null;column:title" json:"title"`
  Description        string           `gorm:"column:description" json:"description"`
  Status             string           `gorm:"index;not null;column:status" json:"status"`
  SigningOrder       string           `gorm:"not null;column:signing_order" json:"signing_order"`
  Origin             string           `gorm:"column:origin" json:"origin"`
  SourceKey          string           `gorm:"column:source_key" json:"source_key"`
  MetaKey            string           `gorm:"column:meta_key" json:"meta_key"`
  FlattenedKey       string           `gorm:"column:flattened_key" json:"flattened_key"`
  SignedKey          string           `gorm:"column:signed_key" json:"signed_key"`
  SourceSha256       string           `gorm:"column:source_sha256" json:"source_sha256"`
  FlattenedSha256    string           `gorm:"column:flattened_sha256" json:"flattened_sha256"`
  SignedSha256       string           `gorm:"column:signed_sha256" json:"signed_sha256"`
  SentAt             *time.Time       `gorm:"column:sent_at" json:"sent_at"`
  CompletedAt        *time.Time       `gorm:"column:completed_at" json:"completed_at"`
  CancelledAt        *time.Time       `gorm:"column:cancelled_at" json:"cancelled_at"`
  CancelledBy        *uuid.UUID       `gorm:"type:uuid;column:cancelled_by" json:"cancelled_by"`
  DeclinedAt         *time.Time       `gorm:"column:declined_at" json:"declined_at"`
  DeclinedBySignerID *uuid.UUID       `gorm:"type:uuid;column:declined_by_signer_id" json:"declined_by_signer_id"`
  DeclinedReason     string           `gorm:"column:declined_reason" json:"declined_reason"`
  ExpiresAt          *time.Time       `gorm:"index;column:expires_at" json:"expires_at"`
  CreatedAt          time.Time        `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt          time.Time        `gorm:"not null;default:now()" json:"updated_at"`
  Signers            []*EnvelopeSigner `gorm:"foreignKey:EnvelopeID;references:ID" json:"signers,omitempty"`
}

func (Envelope) TableName() string {
  return "envelope"
}
