package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey      = "X-Idempotency-Key"
	HeaderIdempotencyReplayed = "X-Idempotent-Replayed"
)

// IdempotencyRecord is what a store keeps per key. A record with Processing set
// is a lock held by the first request.
type IdempotencyRecord struct {
	Fingerprint string
	Status      int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
	Processing  bool
}

// IdempotencyStore backs the idempotency middleware.
type IdempotencyStore interface {
	// Acquire stores rec under key unless the key exists. It returns the existing
	// record and true when the key was already taken.
	Acquire(ctx context.Context, key string, rec IdempotencyRecord) (*IdempotencyRecord, bool, error)
	Complete(ctx context.Context, key string, rec IdempotencyRecord) error
	Release(ctx context.Context, key string) error
}

// MemoryIdempotencyStore 单机/测试用
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]IdempotencyRecord
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryIdempotencyStore{ttl: ttl, records: make(map[string]IdempotencyRecord)}
}

func (s *MemoryIdempotencyStore) Acquire(_ context.Context, key string, rec IdempotencyRecord) (*IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[key]; ok && time.Since(existing.CreatedAt) < s.ttl {
		return &existing, true, nil
	}
	s.records[key] = rec
	return nil, false, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key string, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// IdempotencyMiddleware replays the first successful response for a repeated
// X-Idempotency-Key. Keys are scoped to dealer, method and route, and a key reused
// with a different body is a conflict. Requests that end in an error are released
// so the client can retry them. Must run after ActorMiddleware.
func IdempotencyMiddleware(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		idemKey := c.GetHeader(HeaderIdempotencyKey)
		if idemKey == "" || !isWrite(c.Request.Method) {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		// 1. 请求指纹
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			_ = c.Error(apperrors.NewInvalidRequest("unreadable request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		fingerprint := hex.EncodeToString(sum[:])

		dealerID := DealerID(c)
		if dealerID == "" {
			dealerID = "anonymous"
		}
		fullKey := dealerID + ":" + c.Request.Method + ":" + c.FullPath() + ":" + idemKey

		// 2. 加锁或命中
		existing, hit, err := store.Acquire(ctx, fullKey, IdempotencyRecord{
			Fingerprint: fingerprint,
			CreatedAt:   time.Now().UTC(),
			Processing:  true,
		})
		if err != nil {
			// 存储不可用时放行
			logger.LogWarn(ctx, err, "idempotency store unavailable", "key", idemKey)
			c.Next()
			return
		}
		if hit {
			switch {
			case existing.Fingerprint != "" && existing.Fingerprint != fingerprint:
				_ = c.Error(apperrors.New(apperrors.ErrConflict, "idempotency key reused with a different request", nil))
				c.Abort()
			case existing.Processing:
				_ = c.Error(apperrors.New(apperrors.ErrConflict, "request with this idempotency key is in progress", nil))
				c.Abort()
			default:
				contentType := existing.ContentType
				if contentType == "" {
					contentType = "application/json; charset=utf-8"
				}
				c.Header(HeaderIdempotencyReplayed, "true")
				c.Data(existing.Status, contentType, existing.Body)
				c.Abort()
			}
			return
		}

		// 3. 执行并记录
		w := &responseBodyWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// ErrorHandler renders c.Errors after this returns, so errored requests
		// have no body yet and are released instead of cached.
		if len(c.Errors) > 0 || w.Status() >= http.StatusInternalServerError {
			if err := store.Release(ctx, fullKey); err != nil {
				logger.LogWarn(ctx, err, "idempotency release failed", "key", idemKey)
			}
			return
		}
		rec := IdempotencyRecord{
			Fingerprint: fingerprint,
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
			CreatedAt:   time.Now().UTC(),
		}
		if err := store.Complete(ctx, fullKey, rec); err != nil {
			logger.LogWarn(ctx, err, "idempotency save failed", "key", idemKey)
		}
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

type responseBodyWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *responseBodyWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
