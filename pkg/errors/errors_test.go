package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrNoObligations, "class 10A has nothing to schedule"))

	appErr := FromError(wrapped)

	assert.Equal(t, ErrNoObligations.Code, appErr.Code)
	assert.Equal(t, http.StatusPreconditionFailed, appErr.Status)
	assert.Equal(t, "class 10A has nothing to schedule", appErr.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(errors.New("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.EqualError(t, appErr, "internal server error: boom")
}

func TestIsComparesCodes(t *testing.T) {
	err := Wrap(errors.New("insert failed"), ErrWrite.Code, ErrWrite.Status, "failed to replace schedule")

	assert.True(t, Is(err, ErrWrite))
	assert.False(t, Is(err, ErrInvalidForm))
	assert.False(t, Is(nil, ErrWrite))
}
