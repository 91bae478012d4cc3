package envelope

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes envelope domain failure semantics.
type ErrorCode string

const (
	CodeValidation            ErrorCode = "validation"
	CodeEnvelopeNotFound      ErrorCode = "envelope_not_found"
	CodeSignerNotFound        ErrorCode = "signer_not_found"
	CodeInvalidEnvelopeState  ErrorCode = "invalid_envelope_state"
	CodeEnvelopeCompleted     ErrorCode = "envelope_completed"
	CodeInvalidSignerState    ErrorCode = "invalid_signer_state"
	CodeSignerEmailDuplicate  ErrorCode = "signer_email_duplicate"
	CodeSignerCannotBeRemoved ErrorCode = "signer_cannot_be_removed"
	CodeConflict              ErrorCode = "conflict"
	CodeInternal              ErrorCode = "internal"
)

// Error is the canonical domain error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a domain error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with domain error semantics.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or wrapped err) carries the given domain code.
func IsCode(err error, code ErrorCode) bool {
	var domErr *Error
	if !errors.As(err, &domErr) {
		return false
	}
	return domErr.Code == code
}

// CodeOf extracts the domain error code when available.
func CodeOf(err error) ErrorCode {
	var domErr *Error
	if !errors.As(err, &domErr) {
		return ""
	}
	return domErr.Code
}
