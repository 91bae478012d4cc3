package envelope

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newDraftEnvelope(t *testing.T) *SignatureEnvelope {
	t.Helper()
	env, err := New(NewEnvelopeInput{
		TenantID:     "tenant-1",
		CreatedBy:    uuid.New(),
		Title:        "Service Agreement",
		SigningOrder: OwnerFirst(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return env
}

func newTestSigner(t *testing.T, email string, userID uuid.UUID) *Signer {
	t.Helper()
	s, err := NewSigner(NewSignerInput{
		UserID:   userID,
		Email:    email,
		FullName: "Test Signer",
		External: userID == uuid.Nil,
	})
	if err != nil {
		t.Fatalf("NewSigner(%s): %v", email, err)
	}
	return s
}

func TestNewEnvelopeStartsInDraft(t *testing.T) {
	env := newDraftEnvelope(t)
	if env.GetStatus() != StatusDraft {
		t.Fatalf("status: want=%s got=%s", StatusDraft, env.GetStatus())
	}
	if len(env.GetSigners()) != 0 {
		t.Fatalf("signers: want=0 got=%d", len(env.GetSigners()))
	}
	if env.GetSentAt() != nil {
		t.Fatalf("sentAt should be nil on a new envelope")
	}
}

func TestSendRequiresDraftAndSigners(t *testing.T) {
	env := newDraftEnvelope(t)

	if err := env.Send(); !IsCode(err, CodeInvalidEnvelopeState) {
		t.Fatalf("send with no signers: want %s, got %v", CodeInvalidEnvelopeState, err)
	}

	if err := env.AddSigner(newTestSigner(t, "a@example.com", uuid.Nil)); err != nil {
		t.Fatalf("AddSigner: %v", err)
	}
	if err := env.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if env.GetStatus() != StatusReadyForSignature {
		t.Fatalf("status: want=%s got=%s", StatusReadyForSignature, env.GetStatus())
	}
	if env.GetSentAt() == nil {
		t.Fatalf("sentAt not stamped")
	}

	// Second send must fail: the envelope is no longer a draft.
	if err := env.Send(); !IsCode(err, CodeInvalidEnvelopeState) {
		t.Fatalf("double send: want %s, got %v", CodeInvalidEnvelopeState, err)
	}
}

func TestAddSignerRejectsDuplicateEmailCaseInsensitive(t *testing.T) {
	env := newDraftEnvelope(t)
	if err := env.AddSigner(newTestSigner(t, "dup@example.com", uuid.Nil)); err != nil {
		t.Fatalf("AddSigner: %v", err)
	}
	err := env.AddSigner(newTestSigner(t, "  DUP@Example.COM ", uuid.Nil))
	if !IsCode(err, CodeSignerEmailDuplicate) {
		t.Fatalf("want %s, got %v", CodeSignerEmailDuplicate, err)
	}
}

func TestAddSignerRejectedInTerminalState(t *testing.T) {
	env := newDraftEnvelope(t)
	if err := env.Cancel(env.GetCreatedBy()); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	err := env.AddSigner(newTestSigner(t, "late@example.com", uuid.Nil))
	if !IsCode(err, CodeInvalidEnvelopeState) {
		t.Fatalf("want %s, got %v", CodeInvalidEnvelopeState, err)
	}
}

func TestRemoveSignerGuards(t *testing.T) {
	env := newDraftEnvelope(t)
	a := newTestSigner(t, "a@example.com", uuid.Nil)
	b := newTestSigner(t, "b@example.com", uuid.Nil)
	if err := env.AddSigner(a); err != nil {
		t.Fatalf("AddSigner a: %v", err)
	}
	if err := env.AddSigner(b); err != nil {
		t.Fatalf("AddSigner b: %v", err)
	}

	if err := env.RemoveSigner(uuid.New()); !IsCode(err, CodeSignerNotFound) {
		t.Fatalf("unknown signer: want %s, got %v", CodeSignerNotFound, err)
	}

	if err := env.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := env.UpdateSignerStatus(a.GetID(), SignerSigned); err != nil {
		t.Fatalf("sign a: %v", err)
	}
	if err := env.RemoveSigner(a.GetID()); !IsCode(err, CodeSignerCannotBeRemoved) {
		t.Fatalf("signed signer removal: want %s, got %v", CodeSignerCannotBeRemoved, err)
	}

	// A pending signer can still be removed while in flight.
	if err := env.RemoveSigner(b.GetID()); err != nil {
		t.Fatalf("RemoveSigner b: %v", err)
	}
	// With only the signed signer left, removal re-derives completion.
	if env.GetStatus() != StatusCompleted {
		t.Fatalf("status after removing last pending: want=%s got=%s", StatusCompleted, env.GetStatus())
	}
}

func TestCancelSemantics(t *testing.T) {
	userID := uuid.New()

	t.Run("draft can be cancelled", func(t *testing.T) {
		env := newDraftEnvelope(t)
		if err := env.Cancel(userID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if env.GetStatus() != StatusCancelled {
			t.Fatalf("status: want=%s got=%s", StatusCancelled, env.GetStatus())
		}
		if env.GetCancelledBy() == nil || *env.GetCancelledBy() != userID {
			t.Fatalf("cancelledBy not recorded")
		}
	})

	t.Run("completed envelope reports completion", func(t *testing.T) {
		env := newDraftEnvelope(t)
		s := newTestSigner(t, "only@example.com", uuid.Nil)
		if err := env.AddSigner(s); err != nil {
			t.Fatalf("AddSigner: %v", err)
		}
		if err := env.Send(); err != nil {
			t.Fatalf("Send: %v", err)
		}
		if err := env.UpdateSignerStatus(s.GetID(), SignerSigned); err != nil {
			t.Fatalf("sign: %v", err)
		}
		if env.GetStatus() != StatusCompleted {
			t.Fatalf("status: want=%s got=%s", StatusCompleted, env.GetStatus())
		}
		if err := env.Cancel(userID); !IsCode(err, CodeEnvelopeCompleted) {
			t.Fatalf("want %s, got %v", CodeEnvelopeCompleted, err)
		}
	})

	t.Run("other terminal states reject cancel", func(t *testing.T) {
		env := newDraftEnvelope(t)
		if err := env.Cancel(userID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if err := env.Cancel(userID); !IsCode(err, CodeInvalidEnvelopeState) {
			t.Fatalf("want %s, got %v", CodeInvalidEnvelopeState, err)
		}
	})
}

func TestMarkAsExpiredSemantics(t *testing.T) {
	t.Run("expired twice is a no-op", func(t *testing.T) {
		env := newDraftEnvelope(t)
		if err := env.MarkAsExpired(); err != nil {
			t.Fatalf("MarkAsExpired: %v", err)
		}
		if err := env.MarkAsExpired(); err != nil {
			t.Fatalf("second MarkAsExpired: %v", err)
		}
		if env.GetStatus() != StatusExpired {
			t.Fatalf("status: want=%s got=%s", StatusExpired, env.GetStatus())
		}
	})

	t.Run("completed envelope cannot expire", func(t *testing.T) {
		env := newDraftEnvelope(t)
		s := newTestSigner(t, "only@example.com", uuid.Nil)
		if err := env.AddSigner(s); err != nil {
			t.Fatalf("AddSigner: %v", err)
		}
		if err := env.Send(); err != nil {
			t.Fatalf("Send: %v", err)
		}
		if err := env.UpdateSignerStatus(s.GetID(), SignerSigned); err != nil {
			t.Fatalf("sign: %v", err)
		}
		if err := env.MarkAsExpired(); !IsCode(err, CodeEnvelopeCompleted) {
			t.Fatalf("want %s, got %v", CodeEnvelopeCompleted, err)
		}
	})
}

func TestStatusReevaluation(t *testing.T) {
	t.Run("all signed completes the envelope", func(t *testing.T) {
		env := newDraftEnvelope(t)
		a := newTestSigner(t, "a@example.com", uuid.Nil)
		b := newTestSigner(t, "b@example.com", uuid.Nil)
		if err := env.AddSigner(a); err != nil {
			t.Fatalf("AddSigner a: %v", err)
		}
		if err := env.AddSigner(b); err != nil {
			t.Fatalf("AddSigner b: %v", err)
		}
		if err := env.Send(); err != nil {
			t.Fatalf("Send: %v", err)
		}
		if err := env.UpdateSignerStatus(a.GetID(), SignerSigned); err != nil {
			t.Fatalf("sign a: %v", err)
		}
		if env.GetStatus() != StatusReadyForSignature {
			t.Fatalf("partial signing should stay %s, got %s", StatusReadyForSignature, env.GetStatus())
		}
		if err := env.UpdateSignerStatus(b.GetID(), SignerSigned); err != nil {
			t.Fatalf("sign b: %v", err)
		}
		if env.GetStatus() != StatusCompleted {
			t.Fatalf("status: want=%s got=%s", StatusCompleted, env.GetStatus())
		}
		if env.GetCompletedAt() == nil {
			t.Fatalf("completedAt not stamped")
		}
	})

	t.Run("any decline declines the envelope", func(t *testing.T) {
		env := newDraftEnvelope(t)
		a := newTestSigner(t, "a@example.com", uuid.Nil)
		b := newTestSigner(t, "b@example.com", uuid.Nil)
		if err := env.AddSigner(a); err != nil {
			t.Fatalf("AddSigner a: %v", err)
		}
		if err := env.AddSigner(b); err != nil {
			t.Fatalf("AddSigner b: %v", err)
		}
		if err := env.Send(); err != nil {
			t.Fatalf("Send: %v", err)
		}
		if err := env.DeclineBySigner(b.GetID(), "changed my mind"); err != nil {
			t.Fatalf("decline b: %v", err)
		}
		if env.GetStatus() != StatusDeclined {
			t.Fatalf("status: want=%s got=%s", StatusDeclined, env.GetStatus())
		}
		if env.GetDeclinedBySignerID() == nil || *env.GetDeclinedBySignerID() != b.GetID() {
			t.Fatalf("declinedBySignerID not recorded")
		}
		if env.GetDeclinedReason() != "changed my mind" {
			t.Fatalf("declinedReason: got %q", env.GetDeclinedReason())
		}
	})
}

func TestSignerTransitionGuards(t *testing.T) {
	env := newDraftEnvelope(t)
	a := newTestSigner(t, "a@example.com", uuid.Nil)
	b := newTestSigner(t, "b@example.com", uuid.Nil)
	if err := env.AddSigner(a); err != nil {
		t.Fatalf("AddSigner a: %v", err)
	}
	if err := env.AddSigner(b); err != nil {
		t.Fatalf("AddSigner b: %v", err)
	}

	// Signer transitions require an in-flight envelope.
	if err := env.UpdateSignerStatus(a.GetID(), SignerSigned); !IsCode(err, CodeInvalidEnvelopeState) {
		t.Fatalf("sign in draft: want %s, got %v", CodeInvalidEnvelopeState, err)
	}

	if err := env.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := env.UpdateSignerStatus(a.GetID(), SignerSigned); err != nil {
		t.Fatalf("sign a: %v", err)
	}
	if err := env.UpdateSignerStatus(a.GetID(), SignerDeclined); !IsCode(err, CodeInvalidSignerState) {
		t.Fatalf("signed signer declining: want %s, got %v", CodeInvalidSignerState, err)
	}
	// Same-state transition is an idempotent no-op.
	if err := env.UpdateSignerStatus(a.GetID(), SignerSigned); err != nil {
		t.Fatalf("repeat sign: %v", err)
	}
}

func TestGetNextSignerOrdering(t *testing.T) {
	ownerID := uuid.New()

	build := func(t *testing.T, order SigningOrder) (*SignatureEnvelope, *Signer, *Signer) {
		env, err := New(NewEnvelopeInput{
			TenantID:     "tenant-1",
			CreatedBy:    ownerID,
			Title:        "NDA",
			SigningOrder: order,
		})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		invitee := newTestSigner(t, "invitee@example.com", uuid.Nil)
		owner := newTestSigner(t, "owner@example.com", ownerID)
		if err := env.AddSigner(invitee); err != nil {
			t.Fatalf("AddSigner invitee: %v", err)
		}
		if err := env.AddSigner(owner); err != nil {
			t.Fatalf("AddSigner owner: %v", err)
		}
		if err := env.Send(); err != nil {
			t.Fatalf("Send: %v", err)
		}
		return env, owner, invitee
	}

	t.Run("owner first", func(t *testing.T) {
		env, owner, invitee := build(t, OwnerFirst())
		next := env.GetNextSigner()
		if next == nil || next.GetID() != owner.GetID() {
			t.Fatalf("next: want owner, got %v", next)
		}
		if err := env.UpdateSignerStatus(owner.GetID(), SignerSigned); err != nil {
			t.Fatalf("sign owner: %v", err)
		}
		next = env.GetNextSigner()
		if next == nil || next.GetID() != invitee.GetID() {
			t.Fatalf("next: want invitee, got %v", next)
		}
	})

	t.Run("invitees first", func(t *testing.T) {
		env, _, invitee := build(t, InviteesFirst())
		next := env.GetNextSigner()
		if next == nil || next.GetID() != invitee.GetID() {
			t.Fatalf("next: want invitee, got %v", next)
		}
	})

	t.Run("nil outside in-flight state", func(t *testing.T) {
		env := newDraftEnvelope(t)
		if env.GetNextSigner() != nil {
			t.Fatalf("draft envelope should have no next signer")
		}
	})
}

func TestCompleteRequiresEverySignerSigned(t *testing.T) {
	env := newDraftEnvelope(t)
	a := newTestSigner(t, "a@example.com", uuid.Nil)
	b := newTestSigner(t, "b@example.com", uuid.Nil)
	for _, s := range []*Signer{a, b} {
		if err := env.AddSigner(s); err != nil {
			t.Fatalf("AddSigner: %v", err)
		}
	}
	if err := env.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := env.UpdateSignerStatus(a.GetID(), SignerSigned); err != nil {
		t.Fatalf("UpdateSignerStatus: %v", err)
	}

	if err := env.Complete(); !IsCode(err, CodeInvalidEnvelopeState) {
		t.Fatalf("complete with a pending signer: want %s, got %v", CodeInvalidEnvelopeState, err)
	}
	if env.GetStatus() != StatusReadyForSignature {
		t.Fatalf("failed complete must not change status, got %s", env.GetStatus())
	}
}

func TestCompleteTransitionsAndIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	signed := RestoreSigner(RestoreSignerInput{
		ID:       uuid.New(),
		Email:    "a@example.com",
		Status:   SignerSigned,
		External: true,
	})
	env, err := Restore(RestoreEnvelopeInput{
		ID:           uuid.New(),
		TenantID:     "tenant-1",
		CreatedBy:    uuid.New(),
		Title:        "Signed Agreement",
		Status:       StatusReadyForSignature,
		Signers:      []*Signer{signed},
		SigningOrder: OwnerFirst(),
		Origin:       OriginUserUpload,
		SentAt:       &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if err := env.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if env.GetStatus() != StatusCompleted {
		t.Fatalf("status: want=%s got=%s", StatusCompleted, env.GetStatus())
	}
	stamped := env.GetCompletedAt()
	if stamped == nil {
		t.Fatalf("completedAt not stamped")
	}

	// Completing again is a no-op and keeps the original timestamp.
	if err := env.Complete(); err != nil {
		t.Fatalf("repeat Complete: %v", err)
	}
	if env.GetCompletedAt() != stamped {
		t.Fatalf("repeat complete must not restamp completedAt")
	}
}

func TestGetSignerCounts(t *testing.T) {
	env := newDraftEnvelope(t)
	if got := env.GetSignerCounts(); got.Total != 0 {
		t.Fatalf("empty envelope counts: got %+v", got)
	}

	a := newTestSigner(t, "a@example.com", uuid.Nil)
	b := newTestSigner(t, "b@example.com", uuid.Nil)
	c := newTestSigner(t, "c@example.com", uuid.Nil)
	for _, s := range []*Signer{a, b, c} {
		if err := env.AddSigner(s); err != nil {
			t.Fatalf("AddSigner: %v", err)
		}
	}
	if err := env.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := env.UpdateSignerStatus(a.GetID(), SignerSigned); err != nil {
		t.Fatalf("sign a: %v", err)
	}
	if err := env.DeclineBySigner(b.GetID(), "not authorized to sign"); err != nil {
		t.Fatalf("decline b: %v", err)
	}

	got := env.GetSignerCounts()
	want := SignerCounts{Total: 3, Pending: 1, Signed: 1, Declined: 1}
	if got != want {
		t.Fatalf("counts: want=%+v got=%+v", want, got)
	}
}

func TestUpdateSourceDocumentDraftOnly(t *testing.T) {
	env := newDraftEnvelope(t)
	hash, err := NewDocumentHash("a3f5bc1d4e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b")
	if err != nil {
		t.Fatalf("NewDocumentHash: %v", err)
	}
	if err := env.UpdateSourceDocument("k/source", "k/meta", hash); err != nil {
		t.Fatalf("UpdateSourceDocument: %v", err)
	}
	if env.GetSourceKey() != "k/source" || env.GetSourceSha256() != hash {
		t.Fatalf("source document not recorded")
	}

	if err := env.AddSigner(newTestSigner(t, "a@example.com", uuid.Nil)); err != nil {
		t.Fatalf("AddSigner: %v", err)
	}
	if err := env.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := env.UpdateSourceDocument("k/other", "k/meta2", hash); !IsCode(err, CodeInvalidEnvelopeState) {
		t.Fatalf("want %s, got %v", CodeInvalidEnvelopeState, err)
	}
}

func TestGetSignersDefensiveCopy(t *testing.T) {
	env := newDraftEnvelope(t)
	if err := env.AddSigner(newTestSigner(t, "a@example.com", uuid.Nil)); err != nil {
		t.Fatalf("AddSigner: %v", err)
	}
	got := env.GetSigners()
	got[0] = nil
	if env.GetSigners()[0] == nil {
		t.Fatalf("mutating the returned slice leaked into the aggregate")
	}
}

func TestIsExpired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	env, err := New(NewEnvelopeInput{
		TenantID:     "tenant-1",
		CreatedBy:    uuid.New(),
		Title:        "Old",
		SigningOrder: OwnerFirst(),
		ExpiresAt:    &past,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !env.IsExpired() {
		t.Fatalf("envelope past its deadline should report expired")
	}
	if newDraftEnvelope(t).IsExpired() {
		t.Fatalf("envelope without deadline should not report expired")
	}
}
