package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"canteen/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"bad device token", domain.ErrDeviceToken, http.StatusUnauthorized},
		{"access denied", domain.ErrAccessDenied, http.StatusForbidden},
		{"csrf mismatch", domain.ErrCSRFMismatch, http.StatusForbidden},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"duplicate account", domain.ErrDuplicateAccount, http.StatusConflict},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict},
		{"item unavailable", domain.ErrItemUnavailable, http.StatusConflict},
		{"empty cart", domain.ErrEmptyCart, http.StatusBadRequest},
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"backend unavailable", domain.ErrBackendUnavailable, http.StatusBadGateway},
		{"storage unavailable", domain.ErrStorageUnavailable, http.StatusBadGateway},
		{"csrf secret missing", domain.ErrCSRFSecretMissing, http.StatusInternalServerError},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := mapDomainError(tt.err)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestMapDomainError_KeepsClientMessage(t *testing.T) {
	err := fmt.Errorf("%w: An account with the same identifier exists already.", domain.ErrDuplicateAccount)

	httpErr := mapDomainError(err)
	assert.Equal(t, http.StatusConflict, httpErr.Code)
	assert.Equal(t, err.Error(), httpErr.Message)
}

func TestMapDomainError_HidesServerDetail(t *testing.T) {
	err := fmt.Errorf("%w: dial tcp 10.0.0.3:4433: connection refused", domain.ErrBackendUnavailable)

	httpErr := mapDomainError(err)
	assert.Equal(t, "backend unavailable", httpErr.Message)
}
