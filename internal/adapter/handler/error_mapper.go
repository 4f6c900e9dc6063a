package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
)

// mapDomainError converts a domain error into an appropriate echo.HTTPError.
// Client errors carry the error text verbatim so the provider's or the
// store's message reaches the user.
func mapDomainError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrDeviceToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())

	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrCSRFMismatch):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrProfileMissing):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrDuplicateAccount),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrItemUnavailable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, domain.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")

	case errors.Is(err, domain.ErrBackendUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "backend unavailable")

	case errors.Is(err, domain.ErrStorageUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "object storage unavailable")

	case errors.Is(err, domain.ErrCSRFSecretMissing):
		return echo.NewHTTPError(http.StatusInternalServerError, "token generation error")

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
