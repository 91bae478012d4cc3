package services

import (
  "context"
  "fmt"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/repos"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
  "github.com/quillsign/quillsign-backend/internal/types"
)

// ActorContext attributes token issuance to the acting user and request.
type ActorContext struct {
  UserID  uuid.UUID
  Network requestdata.NetworkContext
}

// SignerToken is one issued invitation. The raw token travels to the signer
// by email only and never serializes into API responses.
type SignerToken struct {
  SignerID  uuid.UUID `json:"signer_id"`
  Email     string    `json:"email"`
  Token     string    `json:"-"`
  ExpiresAt time.Time `json:"expires_at"`
}

type TokenService interface {
  // GenerateInvitationTokensForSigners mints one invitation token per
  // target signer. Outstanding tokens for the envelope are revoked first so
  // a retried send supersedes rather than duplicates.
  GenerateInvitationTokensForSigners(ctx context.Context, envelopeID uuid.UUID, signers []*envelope.Signer, actor ActorContext) ([]SignerToken, error)
  ValidateInvitationToken(ctx context.Context, token string) (*types.InvitationToken, error)
}

type tokenService struct {
  log           *logger.Logger
  tokenRepo     repos.InvitationTokenRepo
  jwtSecretKey  string
  invitationTTL time.Duration
}

func NewTokenService(log *logger.Logger, tokenRepo repos.InvitationTokenRepo, jwtSecretKey string, invitationTTL time.Duration) TokenService {
  if invitationTTL <= 0 {
    invitationTTL = 7 * 24 * time.Hour
  }
  return &tokenService{
    log:           log.With("service", "TokenService"),
    tokenRepo:     tokenRepo,
    jwtSecretKey:  jwtSecretKey,
    invitationTTL: invitationTTL,
  }
}

func (ts *tokenService) GenerateInvitationTokensForSigners(ctx context.Context, envelopeID uuid.UUID, signers []*envelope.Signer, actor ActorContext) ([]SignerToken, error) {
  now := time.Now().UTC()
  if err := ts.tokenRepo.RevokeActiveForEnvelope(ctx, nil, envelopeID, now); err != nil {
    return nil, fmt.Errorf("revoke outstanding tokens: %w", err)
  }

  expiresAt := now.Add(ts.invitationTTL)
  issued := make([]SignerToken, 0, len(signers))
  rows := make([]*types.InvitationToken, 0, len(signers))
  for _, s := range signers {
    tokenID := uuid.New()
    claims := jwt.MapClaims{
      "kind":        "signer_invitation",
      "token_id":    tokenID.String(),
      "envelope_id": envelopeID.String(),
      "signer_id":   s.GetID().String(),
      "email":       s.GetEmail(),
      "iat":         now.Unix(),
      "exp":         expiresAt.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(ts.jwtSecretKey))
    if err != nil {
      return nil, fmt.Errorf("sign invitation token for signer %s: %w", s.GetID(), err)
    }
    rows = append(rows, &types.InvitationToken{
      ID:         tokenID,
      EnvelopeID: envelopeID,
      SignerID:   s.GetID(),
      Token:      signed,
      ExpiresAt:  expiresAt,
      IssuedBy:   actor.UserID,
      IPAddress:  actor.Network.IPAddress,
      UserAgent:  actor.Network.UserAgent,
      Country:    actor.Network.Country,
    })
    issued = append(issued, SignerToken{
      SignerID:  s.GetID(),
      Email:     s.GetEmail(),
      Token:     signed,
      ExpiresAt: expiresAt,
    })
  }
  if _, err := ts.tokenRepo.CreateBatch(ctx, nil, rows); err != nil {
    return nil, fmt.Errorf("persist invitation tokens: %w", err)
  }
  return issued, nil
}

func (ts *tokenService) ValidateInvitationToken(ctx context.Context, token string) (*types.InvitationToken, error) {
  const op = "TokenService.ValidateInvitationToken"
  parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
    if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
    }
    return []byte(ts.jwtSecretKey), nil
  })
  if err != nil || !parsed.Valid {
    return nil, envelope.NewError(envelope.CodeValidation, op, "invitation token invalid or expired", err)
  }
  row, err := ts.tokenRepo.GetByToken(ctx, nil, token)
  if err != nil {
    return nil, fmt.Errorf("load invitation token: %w", err)
  }
  if row == nil {
    return nil, envelope.NewError(envelope.CodeValidation, op, "invitation token unknown", nil)
  }
  if row.RevokedAt != nil {
    return nil, envelope.NewError(envelope.CodeConflict, op, "invitation token superseded", nil)
  }
  if row.UsedAt != nil {
    return nil, envelope.NewError(envelope.CodeConflict, op, "invitation token already used", nil)
  }
  if time.Now().UTC().After(row.ExpiresAt) {
    return nil, envelope.NewError(envelope.CodeValidation, op, "invitation token expired", nil)
  }
  return row, nil
}
