package envelope

import "fmt"

// EnvelopeStatus is the single canonical envelope lifecycle vocabulary.
// Boundary literals are case-sensitive.
type EnvelopeStatus string

const (
	StatusDraft             EnvelopeStatus = "DRAFT"
	StatusReadyForSignature EnvelopeStatus = "READY_FOR_SIGNATURE"
	StatusCompleted         EnvelopeStatus = "COMPLETED"
	StatusCancelled         EnvelopeStatus = "CANCELLED"
	StatusDeclined          EnvelopeStatus = "DECLINED"
	StatusExpired           EnvelopeStatus = "EXPIRED"
)

func (s EnvelopeStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusReadyForSignature, StatusCompleted,
		StatusCancelled, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition out of s is permitted.
func (s EnvelopeStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusDeclined, StatusExpired:
		return true
	}
	return false
}

func ParseEnvelopeStatus(raw string) (EnvelopeStatus, error) {
	s := EnvelopeStatus(raw)
	if !s.IsValid() {
		return "", NewError(CodeValidation, "ParseEnvelopeStatus",
			fmt.Sprintf("unknown envelope status %q", raw), nil)
	}
	return s, nil
}

// SignerStatus is the per-signer lifecycle vocabulary.
type SignerStatus string

const (
	SignerPending  SignerStatus = "PENDING"
	SignerSigned   SignerStatus = "SIGNED"
	SignerDeclined SignerStatus = "DECLINED"
)

func (s SignerStatus) IsValid() bool {
	switch s {
	case SignerPending, SignerSigned, SignerDeclined:
		return true
	}
	return false
}

func ParseSignerStatus(raw string) (SignerStatus, error) {
	s := SignerStatus(raw)
	if !s.IsValid() {
		return "", NewError(CodeValidation, "ParseSignerStatus",
			fmt.Sprintf("unknown signer status %q", raw), nil)
	}
	return s, nil
}

// SigningOrder decides who the next pending signer is.
type SigningOrder struct {
	value string
}

const (
	signingOrderOwnerFirst    = "OWNER_FIRST"
	signingOrderInviteesFirst = "INVITEES_FIRST"
)

func OwnerFirst() SigningOrder    { return SigningOrder{value: signingOrderOwnerFirst} }
func InviteesFirst() SigningOrder { return SigningOrder{value: signingOrderInviteesFirst} }

func ParseSigningOrder(raw string) (SigningOrder, error) {
	switch raw {
	case signingOrderOwnerFirst:
		return OwnerFirst(), nil
	case signingOrderInviteesFirst:
		return InviteesFirst(), nil
	}
	return SigningOrder{}, NewError(CodeValidation, "ParseSigningOrder",
		fmt.Sprintf("unknown signing order %q", raw), nil)
}

func (o SigningOrder) IsOwnerFirst() bool    { return o.value == signingOrderOwnerFirst }
func (o SigningOrder) IsInviteesFirst() bool { return o.value == signingOrderInviteesFirst }
func (o SigningOrder) String() string {
	if o.value == "" {
		return signingOrderOwnerFirst
	}
	return o.value
}
