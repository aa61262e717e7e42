package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransaction("receive pending article", "create_movement", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
	assert.Equal(t, "create_movement", err.Details["stage"])
	assert.True(t, IsTransaction(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAsAppError_ThroughFmtWrap(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", NewFieldValidation("phone", "phone is required"))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, appErr.Code)
	assert.Equal(t, "phone", appErr.Details["field"])
	assert.True(t, IsValidation(wrapped))
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(wrapped))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(NewConflict("in use")))
	assert.True(t, IsConflict(NewDuplicate("invoice", "number", "F-1")))
	assert.True(t, IsConflict(NewConcurrentModification("invoice", "x")))
	assert.False(t, IsConflict(NewValidation("bad")))
	assert.False(t, IsConflict(errors.New("plain")))
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(NewInsufficientStock("a", "STORE", 5, 2)))
	assert.Equal(t, http.StatusTooManyRequests, GetHTTPStatus(NewRateLimited()))
}
