package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"canteen/internal/identity"
	"canteen/internal/usecase"
)

// DeviceCookie holds the signed device token.
const DeviceCookie = "canteen_device"

// DeviceTokens issues and verifies device tokens.
type DeviceTokens interface {
	Issue(deviceID string) (string, error)
	Parse(raw string) (string, error)
}

// DeviceConfig configures DeviceMiddleware.
type DeviceConfig struct {
	Tokens  DeviceTokens
	NewID   func() string
	Storage identity.StorageFactory
	TTL     time.Duration
	Secure  bool
}

// DeviceMiddleware identifies the calling device by its cookie, issuing a
// fresh device on first contact or when the cookie does not verify.
func DeviceMiddleware(cfg DeviceConfig, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			var deviceID string
			if cookie, err := c.Cookie(DeviceCookie); err == nil {
				id, err := cfg.Tokens.Parse(cookie.Value)
				if err != nil {
					logger.InfoContext(ctx, "replacing unverifiable device cookie", "error", err)
				}
				deviceID = id
			}

			if deviceID == "" {
				deviceID = cfg.NewID()
				raw, err := cfg.Tokens.Issue(deviceID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to issue device token", "error", err)
					return echo.NewHTTPError(http.StatusInternalServerError, "token generation error")
				}
				c.SetCookie(&http.Cookie{
					Name:     DeviceCookie,
					Value:    raw,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(ctxDevice, usecase.Device{ID: deviceID, Storage: cfg.Storage(deviceID)})
			return next(c)
		}
	}
}
