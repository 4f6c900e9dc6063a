package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"canteen/internal/domain"
)

// HMACCSRFGenerator generates CSRF tokens using HMAC-SHA256.
type HMACCSRFGenerator struct {
	secret []byte
}

// NewHMACCSRFGenerator creates a new CSRF token generator.
func NewHMACCSRFGenerator(secret string) *HMACCSRFGenerator {
	return &HMACCSRFGenerator{secret: []byte(secret)}
}

// Generate creates a deterministic CSRF token bound to a device.
func (g *HMACCSRFGenerator) Generate(deviceID string) (string, error) {
	if len(g.secret) == 0 {
		return "", domain.ErrCSRFSecretMissing
	}
	return base64.URLEncoding.EncodeToString(g.sum(deviceID)), nil
}

// Verify checks token against the device in constant time.
func (g *HMACCSRFGenerator) Verify(deviceID, token string) error {
	if len(g.secret) == 0 {
		return domain.ErrCSRFSecretMissing
	}
	got, err := base64.URLEncoding.DecodeString(token)
	if err != nil || !hmac.Equal(got, g.sum(deviceID)) {
		return domain.ErrCSRFMismatch
	}
	return nil
}

func (g *HMACCSRFGenerator) sum(deviceID string) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(deviceID))
	return mac.Sum(nil)
}
