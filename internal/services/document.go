package services

import (
  "bytes"
  "context"
  "crypto/sha256"
  "encoding/hex"
  "fmt"
  "io"
  "time"

  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/platform/objectstore"
  "github.com/quillsign/quillsign-backend/internal/repos"
  "github.com/quillsign/quillsign-backend/internal/types"
)

// DocumentService stores envelope documents content-addressed in the object
// store and keeps the envelope's key/hash pairs in sync.
type DocumentService interface {
  UploadSource(ctx context.Context, envelopeID, userID uuid.UUID, r io.Reader, contentType string) (*types.Envelope, error)
  PresignSourceDownload(ctx context.Context, envelopeID, userID uuid.UUID, ttl time.Duration) (string, error)
  PresignSignedDownload(ctx context.Context, envelopeID, userID uuid.UUID, ttl time.Duration) (string, error)
}

type documentService struct {
  log     *logger.Logger
  store   objectstore.Client
  envRepo repos.EnvelopeRepo
}

func NewDocumentService(log *logger.Logger, store objectstore.Client, envRepo repos.EnvelopeRepo) DocumentService {
  return &documentService{
    log:     log.With("service", "DocumentService"),
    store:   store,
    envRepo: envRepo,
  }
}

func (ds *documentService) UploadSource(ctx context.Context, envelopeID, userID uuid.UUID, r io.Reader, contentType string) (*types.Envelope, error) {
  row, err := ds.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return nil, err
  }
  agg, err := envelopeRowToDomain(row)
  if err != nil {
    return nil, err
  }
  if err := envelope.AssertDraft(agg.GetStatus()); err != nil {
    return nil, err
  }

  data, err := io.ReadAll(r)
  if err != nil {
    return nil, fmt.Errorf("read source document: %w", err)
  }
  sum := sha256.Sum256(data)
  hash, err := envelope.NewDocumentHash(hex.EncodeToString(sum[:]))
  if err != nil {
    return nil, err
  }

  sourceKey := fmt.Sprintf("envelopes/%s/source/%s", envelopeID, hash.String())
  metaKey := fmt.Sprintf("envelopes/%s/meta/%s.json", envelopeID, hash.String())
  if err := ds.store.Put(ctx, sourceKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
    return nil, err
  }

  if err := agg.UpdateSourceDocument(sourceKey, metaKey, hash); err != nil {
    return nil, err
  }
  applyEnvelopeState(row, agg)
  updated, err := ds.envRepo.Update(ctx, nil, row)
  if err != nil {
    return nil, fmt.Errorf("persist source document keys: %w", err)
  }
  ds.log.Info("source document uploaded", "envelope_id", envelopeID, "sha256", hash.String())
  return updated, nil
}

func (ds *documentService) PresignSourceDownload(ctx context.Context, envelopeID, userID uuid.UUID, ttl time.Duration) (string, error) {
  row, err := ds.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return "", err
  }
  if row.SourceKey == "" {
    return "", envelope.NewError(envelope.CodeValidation, "DocumentService.PresignSourceDownload",
      fmt.Sprintf("envelope %s has no source document", envelopeID), nil)
  }
  return ds.store.PresignedGet(ctx, row.SourceKey, ttl)
}

func (ds *documentService) PresignSignedDownload(ctx context.Context, envelopeID, userID uuid.UUID, ttl time.Duration) (string, error) {
  row, err := ds.loadOwned(ctx, envelopeID, userID)
  if err != nil {
    return "", err
  }
  if row.SignedKey == "" {
    return "", envelope.NewError(envelope.CodeValidation, "DocumentService.PresignSignedDownload",
      fmt.Sprintf("envelope %s has no signed document yet", envelopeID), nil)
  }
  return ds.store.PresignedGet(ctx, row.SignedKey, ttl)
}

func (ds *documentService) loadOwned(ctx context.Context, envelopeID, userID uuid.UUID) (*types.Envelope, error) {
  row, err := ds.envRepo.GetByID(ctx, nil, envelopeID)
  if err != nil {
    return nil, fmt.Errorf("load envelope: %w", err)
  }
  if row == nil || row.CreatedBy != userID {
    return nil, envelope.NewError(envelope.CodeEnvelopeNotFound, "DocumentService.loadOwned",
      fmt.Sprintf("envelope %s not found", envelopeID), nil)
  }
  return row, nil
}
