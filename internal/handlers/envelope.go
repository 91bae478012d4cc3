package handlers

import (
  "context"
  "net/http"
  "time"

  "github.com/gin-gonic/gin"
  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
  "github.com/quillsign/quillsign-backend/internal/services"
)

type EnvelopeHandler struct {
  log             *logger.Logger
  envelopeService services.EnvelopeService
  sendUseCase     services.SendEnvelopeUseCase
  documentService services.DocumentService
  auditService    services.AuditService
}

func NewEnvelopeHandler(
  log *logger.Logger,
  envelopeService services.EnvelopeService,
  sendUseCase services.SendEnvelopeUseCase,
  documentService services.DocumentService,
  auditService services.AuditService,
) *EnvelopeHandler {
  return &EnvelopeHandler{
    log:             log.With("handler", "EnvelopeHandler"),
    envelopeService: envelopeService,
    sendUseCase:     sendUseCase,
    documentService: documentService,
    auditService:    auditService,
  }
}

func (h *EnvelopeHandler) Create(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  var req struct {
    Title        string     `json:"title"`
    Description  string     `json:"description"`
    SigningOrder string     `json:"signing_order"`
    Origin       string     `json:"origin"`
    ExpiresAt    *time.Time `json:"expires_at"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  created, err := h.envelopeService.Create(c.Request.Context(), services.CreateEnvelopeInput{
    TenantID:     rd.TenantID,
    CreatedBy:    rd.UserID,
    Title:        req.Title,
    Description:  req.Description,
    SigningOrder: req.SigningOrder,
    Origin:       req.Origin,
    ExpiresAt:    req.ExpiresAt,
  })
  if err != nil {
    h.log.Error("Create failed", "error", err, "user_id", rd.UserID)
    RespondDomainError(c, err)
    return
  }
  c.JSON(http.StatusCreated, created)
}

func (h *EnvelopeHandler) Get(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  row, err := h.envelopeService.GetByID(c.Request.Context(), envelopeID, rd.UserID)
  if err != nil {
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, row)
}

func (h *EnvelopeHandler) AddSigner(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  var req struct {
    Email    string     `json:"email"`
    FullName string     `json:"full_name"`
    Order    int        `json:"order"`
    UserID   *uuid.UUID `json:"user_id"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  signer, err := h.envelopeService.AddSigner(c.Request.Context(), envelopeID, rd.UserID, services.AddSignerInput{
    Email:    req.Email,
    FullName: req.FullName,
    Order:    req.Order,
    UserID:   req.UserID,
  })
  if err != nil {
    h.log.Error("AddSigner failed", "error", err, "envelope_id", envelopeID)
    RespondDomainError(c, err)
    return
  }
  c.JSON(http.StatusCreated, signer)
}

func (h *EnvelopeHandler) RemoveSigner(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  signerID, err := uuid.Parse(c.Param("signerID"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_signer_id", err)
    return
  }
  if err := h.envelopeService.RemoveSigner(c.Request.Context(), envelopeID, rd.UserID, signerID); err != nil {
    h.log.Error("RemoveSigner failed", "error", err, "envelope_id", envelopeID, "signer_id", signerID)
    RespondDomainError(c, err)
    return
  }
  c.Status(http.StatusNoContent)
}

func (h *EnvelopeHandler) Send(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  var req struct {
    Message   string `json:"message"`
    SendToAll *bool  `json:"send_to_all"`
    Signers   []struct {
      SignerID uuid.UUID `json:"signer_id"`
      Message  string    `json:"message"`
    } `json:"signers"`
  }
  // An empty body means "send to everyone".
  if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  var opts *envelope.SendOptions
  if req.Message != "" || req.SendToAll != nil || len(req.Signers) > 0 {
    sendToAll := len(req.Signers) == 0
    if req.SendToAll != nil {
      sendToAll = *req.SendToAll
    }
    targets := make([]envelope.SendTarget, 0, len(req.Signers))
    for _, s := range req.Signers {
      targets = append(targets, envelope.SendTarget{SignerID: s.SignerID, Message: s.Message})
    }
    opts = &envelope.SendOptions{
      Message:   req.Message,
      SendToAll: sendToAll,
      Signers:   targets,
    }
  }
  result, err := h.sendUseCase.Execute(c.Request.Context(), services.SendEnvelopeInput{
    EnvelopeID: envelopeID,
    UserID:     rd.UserID,
    TenantID:   rd.TenantID,
    Network:    rd.Network,
    Options:    opts,
  })
  if err != nil {
    h.log.Error("Send failed", "error", err, "envelope_id", envelopeID)
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, result)
}

func (h *EnvelopeHandler) Cancel(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  agg, err := h.envelopeService.Cancel(c.Request.Context(), envelopeID, rd.UserID)
  if err != nil {
    h.log.Error("Cancel failed", "error", err, "envelope_id", envelopeID)
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, gin.H{
    "envelope_id": agg.GetID(),
    "status":      string(agg.GetStatus()),
  })
}

func (h *EnvelopeHandler) ListAuditEvents(c *gin.Context) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  // Ownership check piggybacks on the scoped read.
  if _, err := h.envelopeService.GetByID(c.Request.Context(), envelopeID, rd.UserID); err != nil {
    RespondDomainError(c, err)
    return
  }
  events, err := h.auditService.ListByEnvelope(c.Request.Context(), envelopeID)
  if err != nil {
    h.log.Error("ListAuditEvents failed", "error", err, "envelope_id", envelopeID)
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, gin.H{"events": events})
}

func (h *EnvelopeHandler) UploadDocument(c *gin.Context) {
  if h.documentService == nil {
    RespondError(c, http.StatusServiceUnavailable, "document_store_unavailable", nil)
    return
  }
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  contentType := c.ContentType()
  if contentType == "" {
    contentType = "application/octet-stream"
  }
  row, err := h.documentService.UploadSource(c.Request.Context(), envelopeID, rd.UserID, c.Request.Body, contentType)
  if err != nil {
    h.log.Error("UploadDocument failed", "error", err, "envelope_id", envelopeID)
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, gin.H{
    "envelope_id":   row.ID,
    "source_key":    row.SourceKey,
    "source_sha256": row.SourceSha256,
  })
}

func (h *EnvelopeHandler) DownloadSource(c *gin.Context) {
  if h.documentService == nil {
    RespondError(c, http.StatusServiceUnavailable, "document_store_unavailable", nil)
    return
  }
  h.presign(c, h.documentService.PresignSourceDownload)
}

func (h *EnvelopeHandler) DownloadSigned(c *gin.Context) {
  if h.documentService == nil {
    RespondError(c, http.StatusServiceUnavailable, "document_store_unavailable", nil)
    return
  }
  h.presign(c, h.documentService.PresignSignedDownload)
}

func (h *EnvelopeHandler) presign(c *gin.Context, fn func(ctx context.Context, envelopeID, userID uuid.UUID, ttl time.Duration) (string, error)) {
  rd := requestdata.GetRequestData(c.Request.Context())
  if rd == nil || rd.UserID == uuid.Nil {
    RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
    return
  }
  envelopeID, err := uuid.Parse(c.Param("id"))
  if err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_envelope_id", err)
    return
  }
  url, err := fn(c.Request.Context(), envelopeID, rd.UserID, 15*time.Minute)
  if err != nil {
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, gin.H{"url": url})
}
