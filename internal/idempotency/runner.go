package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quillsign/quillsign-backend/internal/logger"
)

// Runner wraps a mutating command with the pending→completed idempotency
// discipline. A replayed key returns the stored result without re-running
// side effects; a key still pending is rejected as a duplicate in flight.
type Runner struct {
	log   *logger.Logger
	store Store
	ttl   time.Duration
}

func NewRunner(log *logger.Logger, store Store, ttl time.Duration) (*Runner, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Runner{log: log.With("component", "IdempotencyRunner"), store: store, ttl: ttl}, nil
}

// Execute runs fn at most once per key. The bool result reports a replay.
func (r *Runner) Execute(ctx context.Context, key Key, fn func(ctx context.Context) (any, error)) (json.RawMessage, bool, error) {
	rec, err := r.store.GetRecord(ctx, key.Key)
	if err != nil {
		return nil, false, err
	}
	if rec != nil {
		switch rec.State {
		case StateCompleted:
			r.log.Debug("replaying completed command", "key", key.Key)
			return rec.Result, true, nil
		case StatePending:
			return nil, false, ErrDuplicateInFlight
		}
	}

	if err := r.store.PutPending(ctx, key.Key, r.ttl); err != nil {
		return nil, false, err
	}

	out, err := fn(ctx)
	if err != nil {
		// A deliberate failure releases the key so the caller can retry;
		// a crash instead leaves the pending record to lapse via TTL.
		if delErr := r.store.Delete(ctx, key.Key); delErr != nil {
			r.log.Warn("failed to release idempotency key", "key", key.Key, "error", delErr)
		}
		return nil, false, err
	}

	result, err := json.Marshal(out)
	if err != nil {
		return nil, false, fmt.Errorf("marshal command result: %w", err)
	}
	if err := r.store.PutCompleted(ctx, key.Key, result, r.ttl); err != nil {
		if errors.Is(err, ErrPendingGone) {
			// Side effects ran but the record vanished: surface the
			// conflict rather than synthesizing a soft success.
			return nil, false, err
		}
		return nil, false, err
	}
	return result, false, nil
}
