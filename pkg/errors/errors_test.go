package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"room not found", ErrRoomNotFound, http.StatusNotFound},
		{"wrapped room not found", fmt.Errorf("assign admin: %w", ErrRoomNotFound), http.StatusNotFound},
		{"access denied", ErrAccessDenied, http.StatusForbidden},
		{"invalid state", fmt.Errorf("send: %w", ErrInvalidState), http.StatusUnprocessableEntity},
		{"conflict", ErrConflict, http.StatusConflict},
		{"bad request", ErrBadRequest, http.StatusBadRequest},
		{"token expired", ErrTokenExpired, http.StatusUnauthorized},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusFromError(tt.err))
		})
	}
}

func TestAccessDeniedMatchesForbidden(t *testing.T) {
	assert.True(t, Is(ErrAccessDenied, ErrForbidden))
	assert.False(t, Is(ErrForbidden, ErrAccessDenied))
}

func TestFromErrorHidesInternalDetails(t *testing.T) {
	apiErr := FromError(fmt.Errorf("pq: password authentication failed"))
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
	assert.Equal(t, "internal server error", apiErr.Message)

	apiErr = FromError(fmt.Errorf("close room: %w", ErrAccessDenied))
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
	assert.Equal(t, "close room: access denied", apiErr.Message)
}
