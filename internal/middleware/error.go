package middleware

import (
	"errors"

	"github.com/GoPolymarket/lottogate/internal/pkg/apperrors"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	*apperrors.AppError
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders the last error attached with c.Error as an AppError body.
// Binding errors become INVALID_REQUEST; anything unknown becomes INTERNAL_ERROR
// with the cause kept out of the response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		var appErr *apperrors.AppError
		switch {
		case errors.As(last.Err, &appErr):
		case last.IsType(gin.ErrorTypeBind):
			appErr = apperrors.NewInvalidRequest(last.Err.Error())
		default:
			appErr = apperrors.New(apperrors.ErrInternal, "internal error", last.Err)
		}

		requestID := c.GetString(ContextRequestKey)
		fields := []any{"method", c.Request.Method, "route", c.FullPath(), "code", appErr.Type}
		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "request failed", fields...)
		} else {
			logger.LogWarn(c.Request.Context(), appErr, "request rejected", fields...)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(appErr.HTTPStatus, errorResponse{AppError: appErr, RequestID: requestID})
	}
}
