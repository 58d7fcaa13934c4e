package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", New(ErrInvalidInput, http.StatusTeapot, "short"), http.StatusTeapot},
		{"wrapped app error", fmt.Errorf("word 2: %w", Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d", 3)), http.StatusBadRequest},
		{"not found", fmt.Errorf("%w: %q", ErrModelNotFound, "en"), http.StatusNotFound},
		{"invalid input", fmt.Errorf("%w: empty word", ErrInvalidInput), http.StatusBadRequest},
		{"unknown mode", ErrUnknownMode, http.StatusBadRequest},
		{"timeout", fmt.Errorf("%w: %v", ErrTimeout, context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"inconsistent state", ErrInconsistentState, http.StatusInternalServerError},
		{"other", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppError_Unwraps(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "at most %d words", 10)
	assert.Equal(t, "invalid input: at most 10 words", err.Error())
	assert.True(t, Is(err, ErrInvalidInput))

	var target *AppError
	assert.True(t, As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, "at most 10 words", target.Message)
}
