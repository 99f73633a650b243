package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GoPolymarket/lottogate/internal/middleware"
	"github.com/redis/go-redis/v9"
)

const idempotencyPrefix = "lottogate:idem:"

// RedisIdempotencyStore shares idempotency records between server replicas.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *RedisClient, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{client: client.Client, ttl: ttl}
}

// wire form; []byte goes out as base64 through encoding/json
type redisIdemRecord struct {
	Fingerprint string `json:"fp"`
	Status      int    `json:"status"`
	ContentType string `json:"ct,omitempty"`
	Body        []byte `json:"body,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	Processing  bool   `json:"processing"`
}

func (s *RedisIdempotencyStore) Acquire(ctx context.Context, key string, rec middleware.IdempotencyRecord) (*middleware.IdempotencyRecord, bool, error) {
	raw, err := encodeIdemRecord(rec)
	if err != nil {
		return nil, false, err
	}
	// 第二次尝试覆盖 SETNX 与 GET 之间 key 过期的情况
	for attempt := 0; attempt < 2; attempt++ {
		locked, err := s.client.SetNX(ctx, idempotencyPrefix+key, raw, s.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("redis setnx: %w", err)
		}
		if locked {
			return nil, false, nil
		}
		existing, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("redis get: %w", err)
		}
		out, err := decodeIdemRecord(existing)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
	return nil, false, fmt.Errorf("idempotency key %s kept expiring", key)
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, rec middleware.IdempotencyRecord) error {
	raw, err := encodeIdemRecord(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyPrefix+key, raw, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyPrefix+key).Err()
}

func encodeIdemRecord(rec middleware.IdempotencyRecord) ([]byte, error) {
	return json.Marshal(redisIdemRecord{
		Fingerprint: rec.Fingerprint,
		Status:      rec.Status,
		ContentType: rec.ContentType,
		Body:        rec.Body,
		CreatedAt:   rec.CreatedAt.Unix(),
		Processing:  rec.Processing,
	})
}

func decodeIdemRecord(raw []byte) (*middleware.IdempotencyRecord, error) {
	var wire redisIdemRecord
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &middleware.IdempotencyRecord{
		Fingerprint: wire.Fingerprint,
		Status:      wire.Status,
		ContentType: wire.ContentType,
		Body:        wire.Body,
		CreatedAt:   time.Unix(wire.CreatedAt, 0).UTC(),
		Processing:  wire.Processing,
	}, nil
}
