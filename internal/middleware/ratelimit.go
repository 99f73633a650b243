package middleware

import (
	"sync"

	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// DealerLimiter hands out one token bucket per dealer, created on first use.
type DealerLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	qps      rate.Limit
	burst    int
}

func NewDealerLimiter(qps float64, burst int) *DealerLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &DealerLimiter{
		limiters: make(map[string]*rate.Limiter),
		qps:      rate.Limit(qps),
		burst:    burst,
	}
}

func (l *DealerLimiter) Get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[key]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[key]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.qps, l.burst)
	l.limiters[key] = limiter
	return limiter
}

func RateLimitMiddleware(l *DealerLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.qps <= 0 {
			c.Next()
			return
		}

		// 1. 按经销商限流，匿名请求按来源 IP
		key := DealerID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}

		// 2. 尝试获取令牌
		if !l.Get(key).Allow() {
			_ = c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}

		c.Next()
	}
}
