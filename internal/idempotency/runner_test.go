package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/quillsign/quillsign-backend/internal/logger"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*Record

	pendingErr   error
	completedErr error
	deletes      int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*Record{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return "", false, nil
	}
	return rec.State, true, nil
}

func (m *memoryStore) GetRecord(ctx context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memoryStore) PutPending(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingErr != nil {
		return m.pendingErr
	}
	if _, ok := m.records[key]; ok {
		return ErrDuplicateInFlight
	}
	now := time.Now().UTC()
	m.records[key] = &Record{
		Key:       key,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (m *memoryStore) PutCompleted(ctx context.Context, key string, result json.RawMessage, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completedErr != nil {
		return m.completedErr
	}
	rec, ok := m.records[key]
	if !ok || rec.State != StatePending {
		return ErrPendingGone
	}
	rec.State = StateCompleted
	rec.Result = result
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.records, key)
	return nil
}

func testRunner(t *testing.T, store Store) *Runner {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	r, err := NewRunner(log, store, time.Hour)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func mustKey(t *testing.T, scope string) Key {
	t.Helper()
	k, err := DeriveKey(KeyInput{Method: "POST", Path: "/api/envelopes/:id/send", Scope: scope})
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	return k
}

func TestRunnerExecutesOncePerKey(t *testing.T) {
	store := newMemoryStore()
	r := testRunner(t, store)
	key := mustKey(t, "once")

	calls := 0
	fn := func(ctx context.Context) (any, error) {
		calls++
		return map[string]any{"status": "sent"}, nil
	}

	first, replayed, err := r.Execute(context.Background(), key, fn)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if replayed {
		t.Fatalf("first execution must not be a replay")
	}

	second, replayed, err := r.Execute(context.Background(), key, fn)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if !replayed {
		t.Fatalf("second execution must replay")
	}
	if calls != 1 {
		t.Fatalf("fn calls: want=1 got=%d", calls)
	}
	if string(first) != string(second) {
		t.Fatalf("replay must return the stored result verbatim")
	}
}

func TestRunnerRejectsDuplicateInFlight(t *testing.T) {
	store := newMemoryStore()
	r := testRunner(t, store)
	key := mustKey(t, "inflight")

	if err := store.PutPending(context.Background(), key.Key, time.Hour); err != nil {
		t.Fatalf("seed pending: %v", err)
	}
	_, _, err := r.Execute(context.Background(), key, func(ctx context.Context) (any, error) {
		t.Fatalf("fn must not run for a pending key")
		return nil, nil
	})
	if !errors.Is(err, ErrDuplicateInFlight) {
		t.Fatalf("want ErrDuplicateInFlight, got %v", err)
	}
}

func TestRunnerReleasesKeyOnFailure(t *testing.T) {
	store := newMemoryStore()
	r := testRunner(t, store)
	key := mustKey(t, "failure")

	boom := errors.New("send pipeline failed")
	_, _, err := r.Execute(context.Background(), key, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("fn error must propagate unchanged, got %v", err)
	}
	if store.deletes != 1 {
		t.Fatalf("failed command must release its key, deletes=%d", store.deletes)
	}

	// The key is free again: a retry runs the command.
	out, replayed, err := r.Execute(context.Background(), key, func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	if err != nil || replayed {
		t.Fatalf("retry after failure: err=%v replayed=%v", err, replayed)
	}
	if string(out) != `"ok"` {
		t.Fatalf("retry result: got %s", out)
	}
}

func TestRunnerSurfacesPendingGone(t *testing.T) {
	store := newMemoryStore()
	store.completedErr = ErrPendingGone
	r := testRunner(t, store)
	key := mustKey(t, "gone")

	_, _, err := r.Execute(context.Background(), key, func(ctx context.Context) (any, error) {
		return "done", nil
	})
	if !errors.Is(err, ErrPendingGone) {
		t.Fatalf("want ErrPendingGone, got %v", err)
	}
}
