package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrInvalidRequest     ErrorType = "INVALID_REQUEST"
	ErrInsufficientCredit ErrorType = "INSUFFICIENT_CREDIT"
	ErrPersistence        ErrorType = "PERSISTENCE_FAILURE"
	ErrNotFound           ErrorType = "NOT_FOUND"
	ErrUnauthorized       ErrorType = "UNAUTHORIZED"
	ErrForbidden          ErrorType = "FORBIDDEN"
	ErrReadOnly           ErrorType = "READ_ONLY"
	ErrRateLimited        ErrorType = "RATE_LIMITED"
	ErrConflict           ErrorType = "CONFLICT"
	ErrInternal           ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return New(ErrNotFound, msg, nil)
}

// NewPersistence hides the store error behind a generic message; the cause is kept for logging.
func NewPersistence(op string, cause error) *AppError {
	return New(ErrPersistence, op+" failed", cause)
}

func NewInsufficientCredit(msg string) *AppError {
	return New(ErrInsufficientCredit, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// IsType reports whether err carries an AppError of type t anywhere in its chain.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrInsufficientCredit:
		return http.StatusPaymentRequired
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrReadOnly:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrInsufficientCredit:
		return "Top up the dealer balance or lower the stake."
	case ErrPersistence:
		return "Retry the request; no partial changes were saved."
	case ErrRateLimited:
		return "Retry after a short delay."
	case ErrReadOnly:
		return "Wait for maintenance to finish."
	case ErrConflict:
		return "Retry the request."
	case ErrUnauthorized:
		return "Send the X-Dealer-ID header."
	default:
		return ""
	}
}
