package envelope

import "fmt"

// Pure lifecycle guards, expressed against the one canonical status enum.
// Services call these before touching persistence so illegal transitions are
// rejected without a round trip.

// allowedTransitions holds the forward edges of the envelope state machine.
var allowedTransitions = map[EnvelopeStatus][]EnvelopeStatus{
	StatusDraft: {
		StatusReadyForSignature,
		StatusCancelled,
		StatusExpired,
	},
	StatusReadyForSignature: {
		StatusCompleted,
		StatusCancelled,
		StatusDeclined,
		StatusExpired,
	},
}

// AssertLifecycleTransition validates a from→to edge. Same-state transitions
// are idempotent no-ops.
func AssertLifecycleTransition(from, to EnvelopeStatus) error {
	const op = "AssertLifecycleTransition"
	if !from.IsValid() {
		return NewError(CodeValidation, op, fmt.Sprintf("unknown status %q", from), nil)
	}
	if !to.IsValid() {
		return NewError(CodeValidation, op, fmt.Sprintf("unknown status %q", to), nil)
	}
	if from == to {
		return nil
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return nil
		}
	}
	return NewError(CodeConflict, op,
		fmt.Sprintf("transition %s -> %s is not allowed", from, to), nil)
}

// AssertDraft gates structural mutations that must only happen pre-send.
func AssertDraft(status EnvelopeStatus) error {
	if status != StatusDraft {
		return NewError(CodeConflict, "AssertDraft",
			fmt.Sprintf("envelope status is %s, expected %s", status, StatusDraft), nil)
	}
	return nil
}

// AssertReadyToSend requires at least one signing party and at least one
// input field to fill.
func AssertReadyToSend(signers []SignerLike, inputCount int) error {
	const op = "AssertReadyToSend"
	if len(signers) == 0 {
		return NewError(CodeValidation, op, "envelope has no signers", nil)
	}
	if inputCount <= 0 {
		return NewError(CodeValidation, op, "envelope has no inputs to fill", nil)
	}
	return nil
}

// AssertCancelDeclineAllowed restricts cancel/decline to in-flight envelopes.
func AssertCancelDeclineAllowed(status EnvelopeStatus) error {
	if status != StatusReadyForSignature {
		return NewError(CodeConflict, "AssertCancelDeclineAllowed",
			fmt.Sprintf("envelope status is %s, expected %s", status, StatusReadyForSignature), nil)
	}
	return nil
}
