package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Is(t *testing.T) {
	wrapped := fmt.Errorf("allocating order code: %w", ErrDuplicateIdentifier)

	assert.True(t, errors.Is(wrapped, ErrDuplicateIdentifier))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.True(t, errors.Is(NewNotFoundError("Resource"), ErrNotFound))
}

func TestGetAppError(t *testing.T) {
	t.Run("app error passes through", func(t *testing.T) {
		err := NewFieldError("quantity", "must be at least 1")
		got := GetAppError(fmt.Errorf("wrap: %w", err))

		assert.Equal(t, http.StatusUnprocessableEntity, got.Code)
		assert.Len(t, got.Errors, 1)
		assert.True(t, IsValidation(err))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := GetAppError(errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, got.Code)
		assert.Equal(t, "boom", got.Message)
		assert.False(t, IsAppError(errors.New("boom")))
	})
}

func TestAppError_ErrorIncludesFirstField(t *testing.T) {
	err := NewFieldError("tax_percentage", "must be between 0 and 100")
	assert.Equal(t, "Validation failed: tax_percentage must be between 0 and 100", err.Error())
}
