package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
)

var (
	// ErrDuplicateInFlight signals a conditional create that lost: the same
	// command is already executing. Don't retry, it's already happening.
	ErrDuplicateInFlight = errors.New("idempotency: duplicate command in flight")
	// ErrPendingGone signals a conditional complete that lost: the pending
	// record vanished underneath the caller.
	ErrPendingGone = errors.New("idempotency: pending record gone")
)

// Record is the storage-agnostic idempotency record shape.
type Record struct {
	Key       string          `json:"key"`
	State     State           `json:"state"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Store persists idempotency records with conditional semantics. Both Put
// operations are compare-and-set style so two racing invocations can never
// both win.
type Store interface {
	// Get returns the record state, or ok=false when no record exists.
	Get(ctx context.Context, key string) (State, bool, error)
	// GetRecord returns the full record, or nil when no record exists.
	GetRecord(ctx context.Context, key string) (*Record, error)
	// PutPending conditionally creates a pending record with a TTL and
	// fails with ErrDuplicateInFlight when one already exists.
	PutPending(ctx context.Context, key string, ttl time.Duration) error
	// PutCompleted conditionally upgrades the pending record with the
	// stored result and fails with ErrPendingGone when it disappeared.
	PutCompleted(ctx context.Context, key string, result json.RawMessage, ttl time.Duration) error
	// Delete removes a record so a failed command can be retried.
	Delete(ctx context.Context, key string) error
}
