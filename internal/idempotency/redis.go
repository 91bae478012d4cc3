package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/quillsign/quillsign-backend/internal/logger"
	"github.com/quillsign/quillsign-backend/internal/platform/envutil"
)

const keyPrefix = "idem:"

// RedisStore implements Store on Redis. SETNX gives the conditional create;
// WATCH + MULTI gives the conditional pending→completed upgrade. TTLs make
// abandoned pending records lapse on their own.
type RedisStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisStore(log *logger.Logger, rdb *goredis.Client) (*RedisStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{log: log.With("component", "IdempotencyStore"), rdb: rdb}, nil
}

// NewRedisClientFromEnv dials Redis with the same env convention the rest of
// the service uses.
func NewRedisClientFromEnv(ctx context.Context) (*goredis.Client, error) {
	addr := envutil.String("REDIS_ADDR", "")
	if strings.TrimSpace(addr) == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (State, bool, error) {
	rec, err := s.GetRecord(ctx, key)
	if err != nil {
		return "", false, err
	}
	if rec == nil {
		return "", false, nil
	}
	return rec.State, true, nil
}

func (s *RedisStore) GetRecord(ctx context.Context, key string) (*Record, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("idempotency record decode: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) PutPending(ctx context.Context, key string, ttl time.Duration) error {
	now := time.Now().UTC()
	rec := Record{
		Key:       key,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("idempotency record encode: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, raw, ttl).Result()
	if err != nil {
		return fmt.Errorf("idempotency put pending: %w", err)
	}
	if !ok {
		return ErrDuplicateInFlight
	}
	return nil
}

func (s *RedisStore) PutCompleted(ctx context.Context, key string, result json.RawMessage, ttl time.Duration) error {
	redisKey := keyPrefix + key
	txn := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, redisKey).Bytes()
		if err == goredis.Nil {
			return ErrPendingGone
		}
		if err != nil {
			return fmt.Errorf("idempotency read pending: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("idempotency record decode: %w", err)
		}
		now := time.Now().UTC()
		rec.State = StateCompleted
		rec.Result = result
		rec.UpdatedAt = now
		rec.ExpiresAt = now.Add(ttl)
		updated, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("idempotency record encode: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, redisKey, updated, ttl)
			return nil
		})
		return err
	}
	err := s.rdb.Watch(ctx, txn, redisKey)
	if err == goredis.TxFailedErr {
		// Lost the race with another writer touching the same record.
		return ErrPendingGone
	}
	return err
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("idempotency delete: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
