package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"canteen/internal/domain"
)

// DeviceTokenConfig holds device cookie signing configuration.
type DeviceTokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// deviceClaims carries the device identifier as the token subject.
type deviceClaims struct {
	jwt.RegisteredClaims
}

// DeviceTokens issues and verifies the signed device cookie value.
type DeviceTokens struct {
	cfg DeviceTokenConfig
	now func() time.Time
}

// NewDeviceTokens creates a new device token issuer.
func NewDeviceTokens(cfg DeviceTokenConfig) *DeviceTokens {
	return &DeviceTokens{cfg: cfg, now: time.Now}
}

// NewDeviceID returns a fresh random device identifier.
func NewDeviceID() string {
	return uuid.NewString()
}

// Issue signs a token for deviceID.
func (d *DeviceTokens) Issue(deviceID string) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("%w: empty device id", domain.ErrDeviceToken)
	}
	now := d.now()
	claims := deviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    d.cfg.Issuer,
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d.cfg.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(d.cfg.Secret))
}

// Parse verifies raw and returns its device identifier.
func (d *DeviceTokens) Parse(raw string) (string, error) {
	claims := &deviceClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(d.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(d.cfg.Issuer),
		jwt.WithTimeFunc(d.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrDeviceToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrDeviceToken, errors.New("missing subject"))
	}
	return claims.Subject, nil
}
