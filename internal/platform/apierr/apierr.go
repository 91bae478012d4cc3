package apierr

import (
	"net/http"

	"github.com/quillsign/quillsign-backend/internal/domain/envelope"
)

// Error pairs an HTTP status with the domain error code it surfaces, so
// handlers map failures uniformly instead of switching per endpoint.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain translates domain error codes to HTTP statuses. Unknown errors
// deliberately collapse to 500 so internals never leak into responses.
func FromDomain(err error) *Error {
	code := envelope.CodeOf(err)
	switch code {
	case envelope.CodeEnvelopeNotFound, envelope.CodeSignerNotFound:
		return New(http.StatusNotFound, string(code), err)
	case envelope.CodeValidation, envelope.CodeSignerEmailDuplicate, envelope.CodeInvalidSignerState:
		return New(http.StatusBadRequest, string(code), err)
	case envelope.CodeInvalidEnvelopeState, envelope.CodeEnvelopeCompleted, envelope.CodeSignerCannotBeRemoved, envelope.CodeConflict:
		return New(http.StatusConflict, string(code), err)
	default:
		return New(http.StatusInternalServerError, string(envelope.CodeInternal), err)
	}
}
