package services

import (
  "context"
  "fmt"
  "net/url"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/platform/sendgrid"
)

// NotificationService dispatches signer invitations. Failures propagate to
// the caller; there is no catch-and-continue here.
type NotificationService interface {
  SendSignerInvitations(ctx context.Context, env *envelope.SignatureEnvelope, invites []SignerToken, opts *envelope.SendOptions) error
}

type notificationService struct {
  log            *logger.Logger
  mailer         sendgrid.Client
  signingBaseURL string
}

func NewNotificationService(log *logger.Logger, mailer sendgrid.Client, signingBaseURL string) NotificationService {
  return &notificationService{
    log:            log.With("service", "NotificationService"),
    mailer:         mailer,
    signingBaseURL: signingBaseURL,
  }
}

func (ns *notificationService) SendSignerInvitations(ctx context.Context, env *envelope.SignatureEnvelope, invites []SignerToken, opts *envelope.SendOptions) error {
  for _, invite := range invites {
    link := fmt.Sprintf("%s/sign?token=%s", ns.signingBaseURL, url.QueryEscape(invite.Token))
    text := fmt.Sprintf("You have been invited to sign %q.\n\nSign here: %s\n", env.GetTitle(), link)
    if message := opts.MessageFor(invite.SignerID); message != "" {
      text = fmt.Sprintf("%s\n\nMessage from the sender:\n%s\n", text, message)
    }
    req := sendgrid.SendEmailRequest{
      ToEmail:  invite.Email,
      Subject:  fmt.Sprintf("Signature requested: %s", env.GetTitle()),
      TextBody: text,
      HTMLBody: fmt.Sprintf(
        `<p>You have been invited to sign <strong>%s</strong>.</p><p><a href=%q>Review and sign</a></p>`,
        env.GetTitle(), link),
    }
    if err := ns.mailer.Send(ctx, req); err != nil {
      return fmt.Errorf("send invitation to %s: %w", invite.Email, err)
    }
    ns.log.Info("signer invitation sent", "envelope_id", env.GetID(), "signer_id", invite.SignerID)
  }
  return nil
}

// NoopNotificationService keeps the send pipeline unconditional when email
// dispatch is disabled at composition time.
type NoopNotificationService struct {
  Log *logger.Logger
}

func (n NoopNotificationService) SendSignerInvitations(ctx context.Context, env *envelope.SignatureEnvelope, invites []SignerToken, opts *envelope.SendOptions) error {
  if n.Log != nil {
    n.Log.Debug("notifications disabled, skipping dispatch", "envelope_id", env.GetID(), "count", len(invites))
  }
  return nil
}
