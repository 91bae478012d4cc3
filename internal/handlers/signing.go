package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/services"
)

// SigningHandler serves the token-authorized signer surface. No session is
// required: the invitation token is the credential.
type SigningHandler struct {
  log           *logger.Logger
  signerService services.SignerService
}

func NewSigningHandler(log *logger.Logger, signerService services.SignerService) *SigningHandler {
  return &SigningHandler{
    log:           log.With("handler", "SigningHandler"),
    signerService: signerService,
  }
}

func (h *SigningHandler) Sign(c *gin.Context) {
  var req struct {
    Token        string `json:"token"`
    ConsentGiven bool   `json:"consent_given"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  if req.Token == "" {
    RespondError(c, http.StatusBadRequest, "missing_token", nil)
    return
  }
  agg, err := h.signerService.SignByToken(c.Request.Context(), req.Token, req.ConsentGiven)
  if err != nil {
    h.log.Warn("Sign failed", "error", err)
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, gin.H{
    "envelope_id": agg.GetID(),
    "status":      string(agg.GetStatus()),
  })
}

func (h *SigningHandler) Decline(c *gin.Context) {
  var req struct {
    Token  string `json:"token"`
    Reason string `json:"reason"`
  }
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "invalid_body", err)
    return
  }
  if req.Token == "" {
    RespondError(c, http.StatusBadRequest, "missing_token", nil)
    return
  }
  agg, err := h.signerService.DeclineByToken(c.Request.Context(), req.Token, req.Reason)
  if err != nil {
    h.log.Warn("Decline failed", "error", err)
    RespondDomainError(c, err)
    return
  }
  RespondOK(c, gin.H{
    "envelope_id": agg.GetID(),
    "status":      string(agg.GetStatus()),
  })
}
