package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

const (
  AuditEnvelopeCreated   = "ENVELOPE_CREATED"
  AuditEnvelopeSent      = "ENVELOPE_SENT"
  AuditEnvelopeCancelled = "ENVELOPE_CANCELLED"
  AuditEnvelopeCompleted = "ENVELOPE_COMPLETED"
  AuditEnvelopeDeclined  = "ENVELOPE_DECLINED"
  AuditEnvelopeExpired   = "ENVELOPE_EXPIRED"
  AuditSignerAdded       = "SIGNER_ADDED"
  AuditSignerRemoved     = "SIGNER_REMOVED"
  AuditSignerSigned      = "SIGNER_SIGNED"
  AuditSignerDeclined    = "SIGNER_DECLINED"
)

type AuditEvent struct {
  ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
  TenantID    string         `gorm:"index;column:tenant_id" json:"tenant_id"`
  EnvelopeID  uuid.UUID      `gorm:"type:uuid;index;not null;column:envelope_id" json:"envelope_id"`
  SignerID    *uuid.UUID     `gorm:"type:uuid;column:signer_id" json:"signer_id"`
  EventType   string         `gorm:"index;not null;column:event_type" json:"event_type"`
  Description string         `gorm:"not null;column:description" json:"description"`
  UserID      *uuid.UUID     `gorm:"type:uuid;column:user_id" json:"user_id"`
  UserEmail   string         `gorm:"column:user_email" json:"user_email"`
  IPAddress   string         `gorm:"column:ip_address" json:"ip_address"`
  UserAgent   string         `gorm:"column:user_agent" json:"user_agent"`
  Country     string         `gorm:"column:country" json:"country"`
  Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata"`
  CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (AuditEvent) TableName() string {
  return "audit_event"
}
