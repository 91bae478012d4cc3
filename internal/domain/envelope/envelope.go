package envelope

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeOrigin records how the source document arrived.
type EnvelopeOrigin string

const (
	OriginUserUpload EnvelopeOrigin = "USER_UPLOAD"
	OriginTemplate   EnvelopeOrigin = "TEMPLATE"
)

// SignatureEnvelope is the aggregate root of the signing lifecycle. It owns
// its signer collection outright and is the only place envelope status moves.
// All methods mutate in-memory state only; persistence and side effects live
// with the services layer.
type SignatureEnvelope struct {
	id           uuid.UUID
	tenantID     string
	createdBy    uuid.UUID
	title        string
	description  string
	status       EnvelopeStatus
	signers      []*Signer
	signingOrder SigningOrder
	origin       EnvelopeOrigin

	sourceKey    string
	metaKey      string
	flattenedKey string
	signedKey    string

	sourceSha256    DocumentHash
	flattenedSha256 DocumentHash
	signedSha256    DocumentHash

	sentAt             *time.Time
	completedAt        *time.Time
	cancelledAt        *time.Time
	cancelledBy        *uuid.UUID
	declinedAt         *time.Time
	declinedBySignerID *uuid.UUID
	declinedReason     string
	expiresAt          *time.Time
	createdAt          time.Time
	updatedAt          time.Time
}

type NewEnvelopeInput struct {
	ID           uuid.UUID
	TenantID     string
	CreatedBy    uuid.UUID
	Title        string
	Description  string
	SigningOrder SigningOrder
	Origin       EnvelopeOrigin
	ExpiresAt    *time.Time
}

// New creates a draft envelope with no signers.
func New(in NewEnvelopeInput) (*SignatureEnvelope, error) {
	if in.CreatedBy == uuid.Nil {
		return nil, NewError(CodeValidation, "envelope.New", "createdBy is required", nil)
	}
	if in.Title == "" {
		return nil, NewError(CodeValidation, "envelope.New", "title is required", nil)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	origin := in.Origin
	if origin == "" {
		origin = OriginUserUpload
	}
	now := time.Now().UTC()
	return &SignatureEnvelope{
		id:           id,
		tenantID:     in.TenantID,
		createdBy:    in.CreatedBy,
		title:        in.Title,
		description:  in.Description,
		status:       StatusDraft,
		signingOrder: in.SigningOrder,
		origin:       origin,
		expiresAt:    in.ExpiresAt,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// RestoreEnvelopeInput rebuilds an aggregate from persisted state.
type RestoreEnvelopeInput struct {
	ID                 uuid.UUID
	TenantID           string
	CreatedBy          uuid.UUID
	Title              string
	Description        string
	Status             EnvelopeStatus
	Signers            []*Signer
	SigningOrder       SigningOrder
	Origin             EnvelopeOrigin
	SourceKey          string
	MetaKey            string
	FlattenedKey       string
	SignedKey          string
	SourceSha256       DocumentHash
	FlattenedSha256    DocumentHash
	SignedSha256       DocumentHash
	SentAt             *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	DeclinedAt         *time.Time
	DeclinedBySignerID *uuid.UUID
	DeclinedReason     string
	ExpiresAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func Restore(in RestoreEnvelopeInput) (*SignatureEnvelope, error) {
	if !in.Status.IsValid() {
		return nil, NewError(CodeValidation, "envelope.Restore",
			fmt.Sprintf("invalid persisted status %q", in.Status), nil)
	}
	signers := make([]*Signer, len(in.Signers))
	copy(signers, in.Signers)
	return &SignatureEnvelope{
		id:                 in.ID,
		tenantID:           in.TenantID,
		createdBy:          in.CreatedBy,
		title:              in.Title,
		description:        in.Description,
		status:             in.Status,
		signers:            signers,
		signingOrder:       in.SigningOrder,
		origin:             in.Origin,
		sourceKey:          in.SourceKey,
		metaKey:            in.MetaKey,
		flattenedKey:       in.FlattenedKey,
		signedKey:          in.SignedKey,
		sourceSha256:       in.SourceSha256,
		flattenedSha256:    in.FlattenedSha256,
		signedSha256:       in.SignedSha256,
		sentAt:             in.SentAt,
		completedAt:        in.CompletedAt,
		cancelledAt:        in.CancelledAt,
		cancelledBy:        in.CancelledBy,
		declinedAt:         in.DeclinedAt,
		declinedBySignerID: in.DeclinedBySignerID,
		declinedReason:     in.DeclinedReason,
		expiresAt:          in.ExpiresAt,
		createdAt:          in.CreatedAt,
		updatedAt:          in.UpdatedAt,
	}, nil
}

func (e *SignatureEnvelope) GetID() uuid.UUID              { return e.id }
func (e *SignatureEnvelope) GetTenantID() string           { return e.tenantID }
func (e *SignatureEnvelope) GetCreatedBy() uuid.UUID       { return e.createdBy }
func (e *SignatureEnvelope) GetTitle() string              { return e.title }
func (e *SignatureEnvelope) GetDescription() string        { return e.description }
func (e *SignatureEnvelope) GetStatus() EnvelopeStatus     { return e.status }
func (e *SignatureEnvelope) GetSigningOrder() SigningOrder { return e.signingOrder }
func (e *SignatureEnvelope) GetOrigin() EnvelopeOrigin     { return e.origin }
func (e *SignatureEnvelope) GetSourceKey() string          { return e.sourceKey }
func (e *SignatureEnvelope) GetMetaKey() string            { return e.metaKey }
func (e *SignatureEnvelope) GetFlattenedKey() string       { return e.flattenedKey }
func (e *SignatureEnvelope) GetSignedKey() string          { return e.signedKey }
func (e *SignatureEnvelope) GetSourceSha256() DocumentHash { return e.sourceSha256 }
func (e *SignatureEnvelope) GetFlattenedSha256() DocumentHash { return e.flattenedSha256 }
func (e *SignatureEnvelope) GetSignedSha256() DocumentHash { return e.signedSha256 }
func (e *SignatureEnvelope) GetSentAt() *time.Time         { return e.sentAt }
func (e *SignatureEnvelope) GetCompletedAt() *time.Time    { return e.completedAt }
func (e *SignatureEnvelope) GetCancelledAt() *time.Time    { return e.cancelledAt }
func (e *SignatureEnvelope) GetCancelledBy() *uuid.UUID    { return e.cancelledBy }
func (e *SignatureEnvelope) GetDeclinedAt() *time.Time     { return e.declinedAt }
func (e *SignatureEnvelope) GetDeclinedBySignerID() *uuid.UUID { return e.declinedBySignerID }
func (e *SignatureEnvelope) GetDeclinedReason() string     { return e.declinedReason }
func (e *SignatureEnvelope) GetExpiresAt() *time.Time      { return e.expiresAt }
func (e *SignatureEnvelope) GetCreatedAt() time.Time       { return e.createdAt }
func (e *SignatureEnvelope) GetUpdatedAt() time.Time       { return e.updatedAt }

// GetSigners returns a defensive copy of the signer collection. Mutating the
// returned slice never affects aggregate state.
func (e *SignatureEnvelope) GetSigners() []*Signer {
	out := make([]*Signer, len(e.signers))
	copy(out, e.signers)
	return out
}

// IsInFinalState reports whether the envelope reached a terminal status.
func (e *SignatureEnvelope) IsInFinalState() bool { return e.status.IsTerminal() }

// CanBeModified reports whether structural mutation (add/remove signer,
// document swap) is still allowed.
func (e *SignatureEnvelope) CanBeModified() bool {
	return e.status == StatusDraft || e.status == StatusReadyForSignature
}

func (e *SignatureEnvelope) IsReadyForSigning() bool {
	return e.status == StatusReadyForSignature
}

// IsExpired compares the expiry deadline to the current time.
func (e *SignatureEnvelope) IsExpired() bool {
	return e.expiresAt != nil && time.Now().UTC().After(*e.expiresAt)
}

// IsCompleted is true when the signer collection is non-empty and every
// signer has signed.
func (e *SignatureEnvelope) IsCompleted() bool {
	if len(e.signers) == 0 {
		return false
	}
	for _, s := range e.signers {
		if s.GetStatus() != SignerSigned {
			return false
		}
	}
	return true
}

// SignerCounts tallies the signer collection by status.
type SignerCounts struct {
	Total    int
	Pending  int
	Signed   int
	Declined int
}

func (e *SignatureEnvelope) GetSignerCounts() SignerCounts {
	counts := SignerCounts{Total: len(e.signers)}
	for _, s := range e.signers {
		switch s.GetStatus() {
		case SignerPending:
			counts.Pending++
		case SignerSigned:
			counts.Signed++
		case SignerDeclined:
			counts.Declined++
		}
	}
	return counts
}

// AddSigner appends a signer while the envelope is still modifiable. Signer
// emails are unique within an envelope, compared case-insensitively.
func (e *SignatureEnvelope) AddSigner(s *Signer) error {
	const op = "SignatureEnvelope.AddSigner"
	if !e.CanBeModified() {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in status %s cannot be modified", e.id, e.status), nil)
	}
	for _, existing := range e.signers {
		if existing.GetEmail() == s.GetEmail() {
			return NewError(CodeSignerEmailDuplicate, op,
				fmt.Sprintf("signer email %s already present in envelope %s", s.GetEmail(), e.id), nil)
		}
	}
	e.signers = append(e.signers, s)
	e.touch()
	e.reevaluateStatus()
	return nil
}

// RemoveSigner drops a signer that has not signed yet.
func (e *SignatureEnvelope) RemoveSigner(signerID uuid.UUID) error {
	const op = "SignatureEnvelope.RemoveSigner"
	idx := e.indexOfSigner(signerID)
	if idx < 0 {
		return NewError(CodeSignerNotFound, op,
			fmt.Sprintf("signer %s not found in envelope %s", signerID, e.id), nil)
	}
	if e.signers[idx].HasSigned() {
		return NewError(CodeSignerCannotBeRemoved, op,
			fmt.Sprintf("signer %s already signed envelope %s", signerID, e.id), nil)
	}
	if !e.CanBeModified() {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in status %s cannot be modified", e.id, e.status), nil)
	}
	e.signers = append(e.signers[:idx], e.signers[idx+1:]...)
	e.touch()
	e.reevaluateStatus()
	return nil
}

// Send moves a draft envelope with at least one signer to
// READY_FOR_SIGNATURE and stamps sentAt.
func (e *SignatureEnvelope) Send() error {
	const op = "SignatureEnvelope.Send"
	if e.status != StatusDraft {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in status %s, expected %s", e.id, e.status, StatusDraft), nil)
	}
	if len(e.signers) == 0 {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s has no signers", e.id), nil)
	}
	now := time.Now().UTC()
	e.status = StatusReadyForSignature
	e.sentAt = &now
	e.touch()
	return nil
}

// Cancel aborts an in-flight or draft envelope on behalf of the acting user.
func (e *SignatureEnvelope) Cancel(byUserID uuid.UUID) error {
	const op = "SignatureEnvelope.Cancel"
	if e.status == StatusCompleted {
		return NewError(CodeEnvelopeCompleted, op,
			fmt.Sprintf("envelope %s already completed", e.id), nil)
	}
	if e.status.IsTerminal() {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in terminal status %s", e.id, e.status), nil)
	}
	now := time.Now().UTC()
	e.status = StatusCancelled
	e.cancelledAt = &now
	uid := byUserID
	e.cancelledBy = &uid
	e.touch()
	return nil
}

// MarkAsExpired moves any non-terminal envelope to EXPIRED. Expiring an
// already-expired envelope is a no-op.
func (e *SignatureEnvelope) MarkAsExpired() error {
	const op = "SignatureEnvelope.MarkAsExpired"
	if e.status == StatusExpired {
		return nil
	}
	if e.status == StatusCompleted {
		return NewError(CodeEnvelopeCompleted, op,
			fmt.Sprintf("envelope %s already completed", e.id), nil)
	}
	if e.status.IsTerminal() {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in terminal status %s", e.id, e.status), nil)
	}
	e.status = StatusExpired
	e.touch()
	return nil
}

// Complete finalizes the envelope once every signer has signed.
func (e *SignatureEnvelope) Complete() error {
	const op = "SignatureEnvelope.Complete"
	if !e.IsCompleted() {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s has unsigned signers", e.id), nil)
	}
	if e.status.IsTerminal() && e.status != StatusCompleted {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in terminal status %s", e.id, e.status), nil)
	}
	if e.status == StatusCompleted {
		return nil
	}
	now := time.Now().UTC()
	e.status = StatusCompleted
	e.completedAt = &now
	e.touch()
	return nil
}

// UpdateSignerStatus applies a signer-level transition while the envelope is
// in flight, then re-derives envelope status.
func (e *SignatureEnvelope) UpdateSignerStatus(signerID uuid.UUID, next SignerStatus) error {
	const op = "SignatureEnvelope.UpdateSignerStatus"
	if e.status != StatusReadyForSignature {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in status %s, expected %s", e.id, e.status, StatusReadyForSignature), nil)
	}
	idx := e.indexOfSigner(signerID)
	if idx < 0 {
		return NewError(CodeSignerNotFound, op,
			fmt.Sprintf("signer %s not found in envelope %s", signerID, e.id), nil)
	}
	if err := e.signers[idx].UpdateStatus(next); err != nil {
		return err
	}
	e.touch()
	e.reevaluateStatus()
	return nil
}

// DeclineBySigner is UpdateSignerStatus(DECLINED) with a recorded reason.
func (e *SignatureEnvelope) DeclineBySigner(signerID uuid.UUID, reason string) error {
	const op = "SignatureEnvelope.DeclineBySigner"
	if e.status != StatusReadyForSignature {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in status %s, expected %s", e.id, e.status, StatusReadyForSignature), nil)
	}
	idx := e.indexOfSigner(signerID)
	if idx < 0 {
		return NewError(CodeSignerNotFound, op,
			fmt.Sprintf("signer %s not found in envelope %s", signerID, e.id), nil)
	}
	if err := e.signers[idx].Decline(reason); err != nil {
		return err
	}
	e.touch()
	e.reevaluateStatus()
	return nil
}

// GetNextSigner picks the next pending signer under the signing-order
// policy, or nil when the envelope is not in flight or nobody is pending.
func (e *SignatureEnvelope) GetNextSigner() *Signer {
	if e.status != StatusReadyForSignature {
		return nil
	}
	if e.signingOrder.IsOwnerFirst() {
		for _, s := range e.signers {
			if s.GetUserID() == e.createdBy {
				if s.GetStatus() == SignerPending {
					return s
				}
				break
			}
		}
		for _, s := range e.signers {
			if s.GetStatus() == SignerPending && s.GetUserID() != e.createdBy {
				return s
			}
		}
		return nil
	}
	for _, s := range e.signers {
		if s.GetStatus() == SignerPending {
			return s
		}
	}
	return nil
}

// UpdateSourceDocument swaps the source document while still in draft.
func (e *SignatureEnvelope) UpdateSourceDocument(sourceKey, metaKey string, hash DocumentHash) error {
	const op = "SignatureEnvelope.UpdateSourceDocument"
	if e.status != StatusDraft {
		return NewError(CodeInvalidEnvelopeState, op,
			fmt.Sprintf("envelope %s in status %s, document swap requires %s", e.id, e.status, StatusDraft), nil)
	}
	e.sourceKey = sourceKey
	e.metaKey = metaKey
	e.sourceSha256 = hash
	e.touch()
	return nil
}

// SetFlattenedDocument records the flattened rendition produced at send time.
func (e *SignatureEnvelope) SetFlattenedDocument(key string, hash DocumentHash) {
	e.flattenedKey = key
	e.flattenedSha256 = hash
	e.touch()
}

// SetSignedDocument records the final signed artifact.
func (e *SignatureEnvelope) SetSignedDocument(key string, hash DocumentHash) {
	e.signedKey = key
	e.signedSha256 = hash
	e.touch()
}

// reevaluateStatus derives envelope status from the signer collection after
// any signer mutation. Draft envelopes are structural-only and never derive.
func (e *SignatureEnvelope) reevaluateStatus() {
	if e.status == StatusDraft {
		return
	}
	for _, s := range e.signers {
		if s.HasDeclined() {
			if e.status != StatusDeclined {
				now := time.Now().UTC()
				e.status = StatusDeclined
				e.declinedAt = &now
				id := s.GetID()
				e.declinedBySignerID = &id
				e.declinedReason = s.DeclineReason()
			}
			return
		}
	}
	if e.IsCompleted() {
		if e.status != StatusCompleted {
			now := time.Now().UTC()
			e.status = StatusCompleted
			e.completedAt = &now
		}
		return
	}
	e.status = StatusReadyForSignature
}

func (e *SignatureEnvelope) indexOfSigner(signerID uuid.UUID) int {
	for i, s := range e.signers {
		if s.GetID() == signerID {
			return i
		}
	}
	return -1
}

func (e *SignatureEnvelope) touch() {
	e.updatedAt = time.Now().UTC()
}
