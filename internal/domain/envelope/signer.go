package envelope

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SignerLike is the minimal contract selection and ordering logic needs from
// a signing party. The aggregate's own *Signer satisfies it; tests may use
// lightweight struct stand-ins.
type SignerLike interface {
	GetID() uuid.UUID
	GetEmail() string
	GetStatus() SignerStatus
	UpdateStatus(next SignerStatus) error
}

// Signer is one signing party within an envelope. The envelope aggregate owns
// the collection; signer status only moves through UpdateStatus / Sign /
// Decline so the transition guards always run.
type Signer struct {
	id            uuid.UUID
	userID        uuid.UUID // zero for external invitees
	email         string
	fullName      string
	order         int
	status        SignerStatus
	external      bool
	consentGiven  bool
	consentAt     *time.Time
	signedAt      *time.Time
	declinedAt    *time.Time
	declineReason string
}

type NewSignerInput struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Email    string
	FullName string
	Order    int
	External bool
}

func NewSigner(in NewSignerInput) (*Signer, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, NewError(CodeValidation, "NewSigner",
			fmt.Sprintf("invalid signer email %q", in.Email), nil)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Signer{
		id:       id,
		userID:   in.UserID,
		email:    email,
		fullName: strings.TrimSpace(in.FullName),
		order:    in.Order,
		status:   SignerPending,
		external: in.External,
	}, nil
}

// RestoreSignerInput rebuilds a signer from persistence without re-running
// creation validation.
type RestoreSignerInput struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Email         string
	FullName      string
	Order         int
	Status        SignerStatus
	External      bool
	ConsentGiven  bool
	ConsentAt     *time.Time
	SignedAt      *time.Time
	DeclinedAt    *time.Time
	DeclineReason string
}

func RestoreSigner(in RestoreSignerInput) *Signer {
	return &Signer{
		id:            in.ID,
		userID:        in.UserID,
		email:         strings.ToLower(strings.TrimSpace(in.Email)),
		fullName:      in.FullName,
		order:         in.Order,
		status:        in.Status,
		external:      in.External,
		consentGiven:  in.ConsentGiven,
		consentAt:     in.ConsentAt,
		signedAt:      in.SignedAt,
		declinedAt:    in.DeclinedAt,
		declineReason: in.DeclineReason,
	}
}

func (s *Signer) GetID() uuid.UUID       { return s.id }
func (s *Signer) GetUserID() uuid.UUID   { return s.userID }
func (s *Signer) GetEmail() string       { return s.email }
func (s *Signer) GetFullName() string    { return s.fullName }
func (s *Signer) GetOrder() int          { return s.order }
func (s *Signer) GetStatus() SignerStatus { return s.status }
func (s *Signer) IsExternal() bool       { return s.external }
func (s *Signer) HasSigned() bool        { return s.status == SignerSigned }
func (s *Signer) HasDeclined() bool      { return s.status == SignerDeclined }
func (s *Signer) ConsentGiven() bool     { return s.consentGiven }
func (s *Signer) ConsentAt() *time.Time  { return s.consentAt }
func (s *Signer) SignedAt() *time.Time   { return s.signedAt }
func (s *Signer) DeclinedAt() *time.Time { return s.declinedAt }
func (s *Signer) DeclineReason() string  { return s.declineReason }

// GiveConsent records e-sign consent prior to signing.
func (s *Signer) GiveConsent(at time.Time) {
	s.consentGiven = true
	t := at
	s.consentAt = &t
}

// UpdateStatus applies a signer transition. A signed signer can never
// decline and a declined signer can never sign.
func (s *Signer) UpdateStatus(next SignerStatus) error {
	if !next.IsValid() {
		return NewError(CodeValidation, "Signer.UpdateStatus",
			fmt.Sprintf("unknown signer status %q", next), nil)
	}
	if s.status == next {
		return nil
	}
	if s.status == SignerSigned {
		return NewError(CodeInvalidSignerState, "Signer.UpdateStatus",
			fmt.Sprintf("signer %s already signed, cannot move to %s", s.id, next), nil)
	}
	if s.status == SignerDeclined {
		return NewError(CodeInvalidSignerState, "Signer.UpdateStatus",
			fmt.Sprintf("signer %s already declined, cannot move to %s", s.id, next), nil)
	}
	now := time.Now().UTC()
	switch next {
	case SignerSigned:
		s.signedAt = &now
	case SignerDeclined:
		s.declinedAt = &now
	}
	s.status = next
	return nil
}

// Sign marks the signer as signed.
func (s *Signer) Sign() error {
	return s.UpdateStatus(SignerSigned)
}

// Decline marks the signer as declined with an optional reason.
func (s *Signer) Decline(reason string) error {
	if err := s.UpdateStatus(SignerDeclined); err != nil {
		return err
	}
	s.declineReason = strings.TrimSpace(reason)
	return nil
}

var _ SignerLike = (*Signer)(nil)
