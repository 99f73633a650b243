package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMapsStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewInvalidRequest("bad").HTTPStatus)
	assert.Equal(t, http.StatusPaymentRequired, NewInsufficientCredit("short 100").HTTPStatus)
	assert.Equal(t, http.StatusNotFound, NewNotFound("round").HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, New(ErrReadOnly, "ro", nil).HTTPStatus)
}

func TestPersistenceHidesCause(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := NewPersistence("insert transfer lines", cause)

	assert.Equal(t, "insert transfer lines failed", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create batch: %w", NewInvalidRequest("target required"))

	assert.True(t, IsType(err, ErrInvalidRequest))
	assert.False(t, IsType(err, ErrPersistence))
	assert.False(t, IsType(errors.New("plain"), ErrInvalidRequest))
	assert.Equal(t, ErrInvalidRequest, Wrap(err).Type)
	assert.Equal(t, ErrInternal, Wrap(errors.New("plain")).Type)
	assert.Nil(t, Wrap(nil))
}
