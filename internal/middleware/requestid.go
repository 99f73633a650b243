package middleware

import (
	"time"

	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID   = "X-Request-ID"
	ContextRequestKey = "request_id"
)

// RequestIDMiddleware tags every request with an id and writes one access log line.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set(ContextRequestKey, reqID)
		c.Header(HeaderRequestID, reqID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), "request_id", reqID))

		c.Next()

		logger.Info("request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"dealer_id", DealerID(c),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
