package services

import (
  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/types"
)

// Row/aggregate mapping. The aggregate is the only place lifecycle rules run;
// rows are plain persistence shapes.

func signerRowToDomain(row *types.EnvelopeSigner) *envelope.Signer {
  userID := uuid.Nil
  if row.UserID != nil {
    userID = *row.UserID
  }
  status, err := envelope.ParseSignerStatus(row.Status)
  if err != nil {
    status = envelope.SignerPending
  }
  return envelope.RestoreSigner(envelope.RestoreSignerInput{
    ID:            row.ID,
    UserID:        userID,
    Email:         row.Email,
    FullName:      row.FullName,
    Order:         row.OrderIndex,
    Status:        status,
    External:      row.IsExternal,
    ConsentGiven:  row.ConsentGiven,
    ConsentAt:     row.ConsentAt,
    SignedAt:      row.SignedAt,
    DeclinedAt:    row.DeclinedAt,
    DeclineReason: row.DeclineReason,
  })
}

func signerDomainToRow(envelopeID uuid.UUID, s *envelope.Signer) *types.EnvelopeSigner {
  var userID *uuid.UUID
  if s.GetUserID() != uuid.Nil {
    uid := s.GetUserID()
    userID = &uid
  }
  return &types.EnvelopeSigner{
    ID:            s.GetID(),
    EnvelopeID:    envelopeID,
    UserID:        userID,
    Email:         s.GetEmail(),
    FullName:      s.GetFullName(),
    OrderIndex:    s.GetOrder(),
    Status:        string(s.GetStatus()),
    IsExternal:    s.IsExternal(),
    ConsentGiven:  s.ConsentGiven(),
    ConsentAt:     s.ConsentAt(),
    SignedAt:      s.SignedAt(),
    DeclinedAt:    s.DeclinedAt(),
    DeclineReason: s.DeclineReason(),
  }
}

func envelopeRowToDomain(row *types.Envelope) (*envelope.SignatureEnvelope, error) {
  status, err := envelope.ParseEnvelopeStatus(row.Status)
  if err != nil {
    return nil, err
  }
  order, err := envelope.ParseSigningOrder(row.SigningOrder)
  if err != nil {
    return nil, err
  }
  signers := make([]*envelope.Signer, 0, len(row.Signers))
  for _, s := range row.Signers {
    signers = append(signers, signerRowToDomain(s))
  }
  var sourceHash, flattenedHash, signedHash envelope.DocumentHash
  if row.SourceSha256 != "" {
    if sourceHash, err = envelope.NewDocumentHash(row.SourceSha256); err != nil {
      return nil, err
    }
  }
  if row.FlattenedSha256 != "" {
    if flattenedHash, err = envelope.NewDocumentHash(row.FlattenedSha256); err != nil {
      return nil, err
    }
  }
  if row.SignedSha256 != "" {
    if signedHash, err = envelope.NewDocumentHash(row.SignedSha256); err != nil {
      return nil, err
    }
  }
  return envelope.Restore(envelope.RestoreEnvelopeInput{
    ID:                 row.ID,
    TenantID:           row.TenantID,
    CreatedBy:          row.CreatedBy,
    Title:              row.Title,
    Description:        row.Description,
    Status:             status,
    Signers:            signers,
    SigningOrder:       order,
    Origin:             envelope.EnvelopeOrigin(row.Origin),
    SourceKey:          row.SourceKey,
    MetaKey:            row.MetaKey,
    FlattenedKey:       row.FlattenedKey,
    SignedKey:          row.SignedKey,
    SourceSha256:       sourceHash,
    FlattenedSha256:    flattenedHash,
    SignedSha256:       signedHash,
    SentAt:             row.SentAt,
    CompletedAt:        row.CompletedAt,
    CancelledAt:        row.CancelledAt,
    CancelledBy:        row.CancelledBy,
    DeclinedAt:         row.DeclinedAt,
    DeclinedBySignerID: row.DeclinedBySignerID,
    DeclinedReason:     row.DeclinedReason,
    ExpiresAt:          row.ExpiresAt,
    CreatedAt:          row.CreatedAt,
    UpdatedAt:          row.UpdatedAt,
  })
}

// applyEnvelopeState copies derived lifecycle state from the aggregate back
// onto the persistence row.
func applyEnvelopeState(row *types.Envelope, agg *envelope.SignatureEnvelope) {
  row.Status = string(agg.GetStatus())
  row.SentAt = agg.GetSentAt()
  row.CompletedAt = agg.GetCompletedAt()
  row.CancelledAt = agg.GetCancelledAt()
  row.CancelledBy = agg.GetCancelledBy()
  row.DeclinedAt = agg.GetDeclinedAt()
  row.DeclinedBySignerID = agg.GetDeclinedBySignerID()
  row.DeclinedReason = agg.GetDeclinedReason()
  row.SourceKey = agg.GetSourceKey()
  row.MetaKey = agg.GetMetaKey()
  row.FlattenedKey = agg.GetFlattenedKey()
  row.SignedKey = agg.GetSignedKey()
  if !agg.GetSourceSha256().IsZero() {
    row.SourceSha256 = agg.GetSourceSha256().String()
  }
  if !agg.GetFlattenedSha256().IsZero() {
    row.FlattenedSha256 = agg.GetFlattenedSha256().String()
  }
  if !agg.GetSignedSha256().IsZero() {
    row.SignedSha256 = agg.GetSignedSha256().String()
  }
  row.UpdatedAt = agg.GetUpdatedAt()
}
