package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/internal/domain"
)

const testDeviceSecret = "this-is-a-valid-device-token-secret-32-chars-long"

func newTestTokens(ttl time.Duration) *DeviceTokens {
	return NewDeviceTokens(DeviceTokenConfig{
		Secret: testDeviceSecret,
		Issuer: "canteen",
		TTL:    ttl,
	})
}

func TestDeviceTokens_RoundTrip(t *testing.T) {
	tokens := newTestTokens(time.Hour)
	id := NewDeviceID()

	raw, err := tokens.Issue(id)
	require.NoError(t, err)

	got, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	parsed, err := jwt.ParseWithClaims(raw, &deviceClaims{}, func(*jwt.Token) (any, error) {
		return []byte(testDeviceSecret), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(*deviceClaims)
	assert.Equal(t, "canteen", claims.Issuer)
	assert.Equal(t, id, claims.Subject)
}

func TestDeviceTokens_Expired(t *testing.T) {
	tokens := newTestTokens(-time.Minute)

	raw, err := tokens.Issue("device-1")
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrDeviceToken)
}

func TestDeviceTokens_WrongSecret(t *testing.T) {
	raw, err := newTestTokens(time.Hour).Issue("device-1")
	require.NoError(t, err)

	other := NewDeviceTokens(DeviceTokenConfig{Secret: "another-secret-that-is-also-32-chars-long!!", Issuer: "canteen", TTL: time.Hour})
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrDeviceToken)
}

func TestDeviceTokens_WrongIssuer(t *testing.T) {
	raw, err := newTestTokens(time.Hour).Issue("device-1")
	require.NoError(t, err)

	other := NewDeviceTokens(DeviceTokenConfig{Secret: testDeviceSecret, Issuer: "someone-else", TTL: time.Hour})
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, domain.ErrDeviceToken)
}

func TestDeviceTokens_EmptyDevice(t *testing.T) {
	_, err := newTestTokens(time.Hour).Issue("")
	assert.ErrorIs(t, err, domain.ErrDeviceToken)

	_, err = newTestTokens(time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, domain.ErrDeviceToken)
}
