package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomError_UnwrapAndMessage(t *testing.T) {
	err := NewCustomError(ErrInvalidTransition, "cannot move report from pending to resolved").
		WithCode("WF_001").
		WithDetails(map[string]interface{}{"from": "pending"})

	wrapped := fmt.Errorf("update status: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	assert.Equal(t, "cannot move report from pending to resolved", err.Error())
	assert.Equal(t, "WF_001", err.Code)

	var ce *CustomError
	assert.True(t, errors.As(wrapped, &ce))
	assert.Equal(t, "pending", ce.Details["from"])
}

func TestCustomError_FallbackMessage(t *testing.T) {
	assert.Equal(t, ErrConflict.Error(), (&CustomError{Err: ErrConflict}).Error())
	assert.Equal(t, "unknown error", (&CustomError{}).Error())
}

func TestIsAndIsNotFound(t *testing.T) {
	assert.True(t, Is(ErrAccountPending, ErrAccountDisabled, ErrAccountRejected, ErrAccountPending))
	assert.False(t, Is(ErrConflict, ErrBadRequest))

	assert.True(t, IsNotFound(fmt.Errorf("x: %w", ErrReportNotFound)))
	assert.True(t, IsNotFound(NewResourceNotFoundError("missing")))
	assert.False(t, IsNotFound(ErrConflict))
}
