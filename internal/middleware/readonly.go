package middleware

import (
	"net/http"

	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// ReadOnlyMiddleware puts the ledger in maintenance mode: reads pass, writes get 503.
// allow lists "METHOD /route/template" entries that never write, such as the credit check.
func ReadOnlyMiddleware(enabled bool, allow ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allow))
	for _, a := range allow {
		allowed[a] = true
	}
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if allowed[c.Request.Method+" "+c.FullPath()] {
			c.Next()
			return
		}

		c.Header("Retry-After", "60")
		_ = c.Error(apperrors.New(apperrors.ErrReadOnly, "ledger is in maintenance mode", nil))
		c.Abort()
	}
}
