package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("session %s is not open", "rs-1")

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrConflict))

	wrapped := fmt.Errorf("ending session: %w", err)
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestError_WithCause(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := Conflict("write conflict").WithCause(cause)

	assert.True(t, Is(err, ErrConflict))
	assert.True(t, Is(err, cause))
	assert.Equal(t, "write conflict: disk on fire", err.Error())
}

func TestInvalidInputWithDetails(t *testing.T) {
	err := InvalidInputWithDetails("validation failed", map[string]string{"current_page": "must be greater than or equal to 0"})

	var domainErr *Error
	assert.True(t, As(err, &domainErr))
	assert.Equal(t, CodeInvalidInput, domainErr.Code)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())
	assert.NotNil(t, domainErr.Details)
}

func TestError_GetStatus(t *testing.T) {
	assert.Equal(t, http.StatusTooManyRequests, RateLimited("slow down").GetStatus())
	assert.Equal(t, http.StatusNotFound, NotFound("gone").GetStatus())
}
