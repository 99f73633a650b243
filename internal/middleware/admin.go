package middleware

import (
	"crypto/subtle"

	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware guards operator routes (forced credit recomputation).
// An empty key disables those routes.
func AdminMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			_ = c.Error(apperrors.New(apperrors.ErrForbidden, "operator routes are disabled", nil))
			c.Abort()
			return
		}
		given := c.GetHeader(HeaderAdminKey)
		if subtle.ConstantTimeCompare([]byte(given), []byte(adminKey)) != 1 {
			_ = c.Error(apperrors.New(apperrors.ErrUnauthorized, "invalid admin key", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
