package store_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/listenupapp/readtrack/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &store.Error{
		Code:    http.StatusNotFound,
		Message: "not found",
		Err:     cause,
	}

	assert.Equal(t, "not found: underlying error", err.Error())
	assert.Equal(t, cause, err.Unwrap())
	assert.Equal(t, http.StatusNotFound, err.HTTPCode())
}

func TestError_WithMessage(t *testing.T) {
	modified := store.ErrConflict.WithMessage("open session exists")

	assert.Equal(t, "open session exists", modified.Message)
	assert.Equal(t, http.StatusConflict, modified.Code)
	assert.Equal(t, "write conflict", store.ErrConflict.Message, "sentinel is not mutated")
}

func TestError_WithCause(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := store.ErrNotFound.WithCause(cause)

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, store.ErrNotFound.Message, wrapped.Message)
}

func TestSentinels_UnwrapToNotFound(t *testing.T) {
	for _, err := range []error{store.ErrSessionNotFound, store.ErrProgressNotFound, store.ErrBookNotFound} {
		wrapped := fmt.Errorf("lookup x: %w", err)
		assert.ErrorIs(t, wrapped, store.ErrNotFound)
		assert.ErrorIs(t, wrapped, err)
	}
	assert.NotErrorIs(t, store.ErrConflict, store.ErrNotFound)
	assert.NotErrorIs(t, store.ErrAlreadyExists, store.ErrConflict)
}

func TestError_DerivedMatchesSentinel(t *testing.T) {
	derived := store.ErrConflict.WithMessage("slot taken").WithCause(errors.New("commit"))

	assert.ErrorIs(t, derived, store.ErrConflict)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", derived), store.ErrConflict)
	assert.NotErrorIs(t, derived, store.ErrAlreadyExists)
}
