package types

import (
  "time"

  "github.com/google/uuid"
)

type InvitationToken struct {
  ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
  EnvelopeID uuid.UUID  `gorm:"type:uuid;index;not null;column:envelope_id" json:"envelope_id"`
  SignerID   uuid.UUID  `gorm:"type:uuid;index;not null;column:signer_id" json:"signer_id"`
  Token      string     `gorm:"uniqueIndex;not null;column:token" json:"-"`
  ExpiresAt  time.Time  `gorm:"not null;column:expires_at" json:"expires_at"`
  UsedAt     *time.Time `gorm:"column:used_at" json:"used_at"`
  RevokedAt  *time.Time `gorm:"column:revoked_at" json:"revoked_at"`
  IssuedBy   uuid.UUID  `gorm:"type:uuid;column:issued_by" json:"issued_by"`
  IPAddress  string     `gorm:"column:ip_address" json:"ip_address"`
  UserAgent  string     `gorm:"column:user_agent" json:"user_agent"`
  Country    string     `gorm:"column:country" json:"country"`
  CreatedAt  time.Time  `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt  time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (InvitationToken) TableName() string {
  return "invitation_token"
}
