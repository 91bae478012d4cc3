package services

import (
  "context"
  "errors"
  "testing"
  "time"

  "github.com/google/uuid"

  "github.com/quillsign/quillsign-backend/internal/domain/envelope"
  "github.com/quillsign/quillsign-backend/internal/logger"
  "github.com/quillsign/quillsign-backend/internal/requestdata"
  "github.com/quillsign/quillsign-backend/internal/types"
)

type fakeEnvelopeService struct {
  EnvelopeService
  transitionAgg *envelope.SignatureEnvelope
  transitionErr error
  transitions   int
  listings      int
}

func (f *fakeEnvelopeService) TransitionToSent(ctx context.Context, envelopeID, userID uuid.UUID) (*envelope.SignatureEnvelope, error) {
  f.transitions++
  if f.transitionErr != nil {
    return nil, f.transitionErr
  }
  return f.transitionAgg, nil
}

func (f *fakeEnvelopeService) GetExternalSigners(ctx context.Context, envelopeID uuid.UUID) ([]*envelope.Signer, error) {
  f.listings++
  external := make([]*envelope.Signer, 0)
  for _, s := range f.transitionAgg.GetSigners() {
    if s.IsExternal() {
      external = append(external, s)
    }
  }
  return external, nil
}

type fakeTokenService struct {
  issued     []SignerToken
  issueErr   error
  calls      int
  lastTargets []*envelope.Signer
}

func (f *fakeTokenService) GenerateInvitationTokensForSigners(ctx context.Context, envelopeID uuid.UUID, signers []*envelope.Signer, actor ActorContext) ([]SignerToken, error) {
  f.calls++
  f.lastTargets = signers
  if f.issueErr != nil {
    return nil, f.issueErr
  }
  out := make([]SignerToken, 0, len(signers))
  for _, s := range signers {
    out = append(out, SignerToken{
      SignerID:  s.GetID(),
      Email:     s.GetEmail(),
      Token:     "tok-" + s.GetID().String(),
      ExpiresAt: time.Now().UTC().Add(time.Hour),
    })
  }
  f.issued = out
  return out, nil
}

func (f *fakeTokenService) ValidateInvitationToken(ctx context.Context, token string) (*types.InvitationToken, error) {
  return nil, errors.New("not implemented")
}

type fakeNotificationService struct {
  calls    int
  sendErr  error
  lastOpts *envelope.SendOptions
}

func (f *fakeNotificationService) SendSignerInvitations(ctx context.Context, env *envelope.SignatureEnvelope, invites []SignerToken, opts *envelope.SendOptions) error {
  f.calls++
  f.lastOpts = opts
  return f.sendErr
}

type fakeAuditService struct {
  events []AuditEventInput
}

func (f *fakeAuditService) Create(ctx context.Context, in AuditEventInput) error {
  f.events = append(f.events, in)
  return nil
}

func (f *fakeAuditService) ListByEnvelope(ctx context.Context, envelopeID uuid.UUID) ([]*types.AuditEvent, error) {
  return nil, nil
}

func sentAggregate(t *testing.T, external ...*envelope.Signer) *envelope.SignatureEnvelope {
  t.Helper()
  now := time.Now().UTC()
  agg, err := envelope.Restore(envelope.RestoreEnvelopeInput{
    ID:           uuid.New(),
    TenantID:     "tenant-1",
    CreatedBy:    uuid.New(),
    Title:        "Master Services Agreement",
    Status:       envelope.StatusReadyForSignature,
    Signers:      external,
    SigningOrder: envelope.OwnerFirst(),
    Origin:       envelope.OriginUserUpload,
    SentAt:       &now,
    CreatedAt:    now,
    UpdatedAt:    now,
  })
  if err != nil {
    t.Fatalf("Restore: %v", err)
  }
  return agg
}

func externalSigner(t *testing.T, email string) *envelope.Signer {
  t.Helper()
  return envelope.RestoreSigner(envelope.RestoreSignerInput{
    ID:       uuid.New(),
    Email:    email,
    Status:   envelope.SignerPending,
    External: true,
  })
}

func internalSigner(t *testing.T, email string) *envelope.Signer {
  t.Helper()
  return envelope.RestoreSigner(envelope.RestoreSignerInput{
    ID:       uuid.New(),
    UserID:   uuid.New(),
    Email:    email,
    Status:   envelope.SignerPending,
    External: false,
  })
}

func newTestUseCase(t *testing.T, envs *fakeEnvelopeService, tokens *fakeTokenService, notify *fakeNotificationService, audit *fakeAuditService) SendEnvelopeUseCase {
  t.Helper()
  log, err := logger.New("development")
  if err != nil {
    t.Fatalf("logger: %v", err)
  }
  return NewSendEnvelopeUseCase(log, envs, tokens, notify, audit)
}

func TestSendEnvelopeSuccess(t *testing.T) {
  a := externalSigner(t, "a@example.com")
  b := externalSigner(t, "b@example.com")
  internal := internalSigner(t, "owner@example.com")
  agg := sentAggregate(t, a, b, internal)

  envs := &fakeEnvelopeService{transitionAgg: agg}
  tokens := &fakeTokenService{}
  notify := &fakeNotificationService{}
  audit := &fakeAuditService{}
  uc := newTestUseCase(t, envs, tokens, notify, audit)

  userID := uuid.New()
  result, err := uc.Execute(context.Background(), SendEnvelopeInput{
    EnvelopeID: agg.GetID(),
    UserID:     userID,
    TenantID:   "tenant-1",
    Network:    requestdata.NetworkContext{IPAddress: "10.0.0.1"},
  })
  if err != nil {
    t.Fatalf("Execute: %v", err)
  }
  if !result.Success {
    t.Fatalf("expected success")
  }
  if result.Status != string(envelope.StatusReadyForSignature) {
    t.Fatalf("status: want=%s got=%s", envelope.StatusReadyForSignature, result.Status)
  }
  // Internal signers never receive invitations.
  if result.TokensGenerated != 2 || result.SignersNotified != 2 {
    t.Fatalf("tokens=%d notified=%d, want 2/2", result.TokensGenerated, result.SignersNotified)
  }
  if envs.listings != 1 {
    t.Fatalf("external signer listing calls: want=1 got=%d", envs.listings)
  }
  if notify.calls != 1 {
    t.Fatalf("notification calls: want=1 got=%d", notify.calls)
  }
  if len(audit.events) != 1 {
    t.Fatalf("audit events: want=1 got=%d", len(audit.events))
  }
  ev := audit.events[0]
  if ev.EventType != types.AuditEnvelopeSent {
    t.Fatalf("event type: want=%s got=%s", types.AuditEnvelopeSent, ev.EventType)
  }
  if ev.UserID == nil || *ev.UserID != userID {
    t.Fatalf("audit actor not recorded")
  }
  if ev.Metadata["external_signer_count"] != 2 {
    t.Fatalf("metadata external_signer_count: got %v", ev.Metadata["external_signer_count"])
  }
}

func TestSendEnvelopeTransitionFailureShortCircuits(t *testing.T) {
  boom := envelope.NewError(envelope.CodeInvalidEnvelopeState, "SignatureEnvelope.Send", "envelope has no signers", nil)
  envs := &fakeEnvelopeService{transitionErr: boom}
  tokens := &fakeTokenService{}
  notify := &fakeNotificationService{}
  audit := &fakeAuditService{}
  uc := newTestUseCase(t, envs, tokens, notify, audit)

  _, err := uc.Execute(context.Background(), SendEnvelopeInput{EnvelopeID: uuid.New(), UserID: uuid.New()})
  if !envelope.IsCode(err, envelope.CodeInvalidEnvelopeState) {
    t.Fatalf("want %s, got %v", envelope.CodeInvalidEnvelopeState, err)
  }
  if tokens.calls != 0 || notify.calls != 0 || len(audit.events) != 0 {
    t.Fatalf("no downstream step may run after a failed transition")
  }
}

func TestSendEnvelopeTokenFailureSkipsNotifyAndAudit(t *testing.T) {
  agg := sentAggregate(t, externalSigner(t, "a@example.com"))
  boom := errors.New("token store unavailable")
  envs := &fakeEnvelopeService{transitionAgg: agg}
  tokens := &fakeTokenService{issueErr: boom}
  notify := &fakeNotificationService{}
  audit := &fakeAuditService{}
  uc := newTestUseCase(t, envs, tokens, notify, audit)

  _, err := uc.Execute(context.Background(), SendEnvelopeInput{EnvelopeID: agg.GetID(), UserID: uuid.New()})
  if !errors.Is(err, boom) {
    t.Fatalf("token error must propagate unchanged, got %v", err)
  }
  if notify.calls != 0 {
    t.Fatalf("notification must not run after token failure")
  }
  if len(audit.events) != 0 {
    t.Fatalf("audit must not record a send that issued no tokens")
  }
}

func TestSendEnvelopeNotifyFailureSkipsAudit(t *testing.T) {
  agg := sentAggregate(t, externalSigner(t, "a@example.com"))
  boom := errors.New("mail provider 502")
  envs := &fakeEnvelopeService{transitionAgg: agg}
  tokens := &fakeTokenService{}
  notify := &fakeNotificationService{sendErr: boom}
  audit := &fakeAuditService{}
  uc := newTestUseCase(t, envs, tokens, notify, audit)

  _, err := uc.Execute(context.Background(), SendEnvelopeInput{EnvelopeID: agg.GetID(), UserID: uuid.New()})
  if !errors.Is(err, boom) {
    t.Fatalf("notify error must propagate unchanged, got %v", err)
  }
  if tokens.calls != 1 {
    t.Fatalf("tokens should have been issued before the notify failure")
  }
  if len(audit.events) != 0 {
    t.Fatalf("audit must not record a partially delivered send")
  }
}

func TestSendEnvelopePartialTargets(t *testing.T) {
  a := externalSigner(t, "a@example.com")
  b := externalSigner(t, "b@example.com")
  agg := sentAggregate(t, a, b)

  envs := &fakeEnvelopeService{transitionAgg: agg}
  tokens := &fakeTokenService{}
  notify := &fakeNotificationService{}
  audit := &fakeAuditService{}
  uc := newTestUseCase(t, envs, tokens, notify, audit)

  result, err := uc.Execute(context.Background(), SendEnvelopeInput{
    EnvelopeID: agg.GetID(),
    UserID:     uuid.New(),
    Options: &envelope.SendOptions{
      Message: "please countersign",
      Signers: []envelope.SendTarget{{SignerID: b.GetID(), Message: "section 4 changed since your last review"}},
    },
  })
  if err != nil {
    t.Fatalf("Execute: %v", err)
  }
  if len(tokens.lastTargets) != 1 || tokens.lastTargets[0].GetID() != b.GetID() {
    t.Fatalf("token issuance must only cover the selected signer")
  }
  if result.TokensGenerated != 1 || result.SignersNotified != 1 {
    t.Fatalf("tokens=%d notified=%d, want 1/1", result.TokensGenerated, result.SignersNotified)
  }
  if notify.lastOpts == nil {
    t.Fatalf("send options must reach the notification dispatch")
  }
  if got := notify.lastOpts.MessageFor(b.GetID()); got != "section 4 changed since your last review" {
    t.Fatalf("per-signer message: got %q", got)
  }
  if got := notify.lastOpts.MessageFor(a.GetID()); got != "please countersign" {
    t.Fatalf("command-level fallback message: got %q", got)
  }
}
