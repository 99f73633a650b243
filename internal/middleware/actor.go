package middleware

import (
	"strings"

	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	HeaderDealerID   = "X-Dealer-ID"
	ContextDealerKey = "dealer_id"
)

// ActorMiddleware 从 X-Dealer-ID 读取当前操作的经销商。
// 身份认证由上游网关完成，这里只传递身份。
func ActorMiddleware(requireDealer bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		dealerID := strings.TrimSpace(c.GetHeader(HeaderDealerID))
		if dealerID == "" {
			if requireDealer {
				_ = c.Error(apperrors.New(apperrors.ErrUnauthorized, "missing dealer identity", nil))
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(ContextDealerKey, dealerID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), "dealer_id", dealerID))
		c.Next()
	}
}

// DealerID returns the acting dealer, or "" when the request carries none.
func DealerID(c *gin.Context) string {
	return c.GetString(ContextDealerKey)
}
