package types

import (
  "time"

  "github.com/google/uuid"
)

type EnvelopeSigner struct {
  ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
  EnvelopeID     uuid.UUID  `gorm:"type:uuid;index;not null;column:envelope_id" json:"envelope_id"`
  UserID         *uuid.UUID `gorm:"type:uuid;column:user_id" json:"user_id"`
  Email          string     `gorm:"index;not null;column:email" json:"email"`
  FullName       string     `gorm:"column:full_name" json:"full_name"`
  OrderIndex     int        `gorm:"not null;default:0;column:order_index" json:"order_index"`
  Status         string     `gorm:"index;not null;column:status" json:"status"`
  IsExternal     bool       `gorm:"not null;default:true;column:is_external" json:"is_external"`
  ConsentGiven   bool       `gorm:"not null;default:false;column:consent_given" json:"consent_given"`
  ConsentAt      *time.Time `gorm:"column:consent_at" json:"consent_at"`
  SignedAt       *time.Time `gorm:"column:signed_at" json:"signed_at"`
  DeclinedAt     *time.Time `gorm:"column:declined_at" json:"declined_at"`
  DeclineReason  string     `gorm:"column:decline_reason" json:"decline_reason"`
  CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt      time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (EnvelopeSigner) TableName() string {
  return "envelope_signer"
}
