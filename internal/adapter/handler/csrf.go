package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
)

// CSRFHeader carries the device's CSRF token on state-changing requests.
const CSRFHeader = "X-CSRF-Token"

// CSRFTokens generates and verifies per-device CSRF tokens.
type CSRFTokens interface {
	Generate(deviceID string) (string, error)
	Verify(deviceID, token string) error
}

// CSRFHandler hands out the CSRF token for the calling device.
type CSRFHandler struct {
	tokens CSRFTokens
}

// NewCSRFHandler creates a new CSRF handler.
func NewCSRFHandler(tokens CSRFTokens) *CSRFHandler {
	return &CSRFHandler{tokens: tokens}
}

// csrfResponse represents the CSRF token response.
type csrfResponse struct {
	Data struct {
		CSRFToken string `json:"csrf_token"`
	} `json:"data"`
}

// Handle processes GET /csrf.
func (h *CSRFHandler) Handle(c echo.Context) error {
	token, err := h.tokens.Generate(deviceFrom(c).ID)
	if err != nil {
		return mapDomainError(err)
	}
	resp := csrfResponse{}
	resp.Data.CSRFToken = token
	return c.JSON(http.StatusOK, resp)
}

// CSRFMiddleware rejects unsafe requests without a valid CSRF token for the
// calling device.
func CSRFMiddleware(tokens CSRFTokens, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			deviceID := deviceFrom(c).ID
			if err := tokens.Verify(deviceID, c.Request().Header.Get(CSRFHeader)); err != nil {
				logger.WarnContext(c.Request().Context(), "csrf check failed",
					"device_id", deviceID, "path", c.Path(), "error", err)
				if errors.Is(err, domain.ErrCSRFSecretMissing) {
					return mapDomainError(err)
				}
				return mapDomainError(domain.ErrCSRFMismatch)
			}
			return next(c)
		}
	}
}
