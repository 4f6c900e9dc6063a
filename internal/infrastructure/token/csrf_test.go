package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"canteen/internal/domain"
)

const testCSRFSecret = "this-is-a-valid-csrf-secret-that-is-at-least-32-chars"

func TestHMACCSRFGenerator_Generate(t *testing.T) {
	gen := NewHMACCSRFGenerator(testCSRFSecret)

	token, err := gen.Generate("device-123")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestHMACCSRFGenerator_Deterministic(t *testing.T) {
	gen := NewHMACCSRFGenerator(testCSRFSecret)

	token1, _ := gen.Generate("device-123")
	token2, _ := gen.Generate("device-123")
	assert.Equal(t, token1, token2)
}

func TestHMACCSRFGenerator_DifferentDevices(t *testing.T) {
	gen := NewHMACCSRFGenerator(testCSRFSecret)

	token1, _ := gen.Generate("device-1")
	token2, _ := gen.Generate("device-2")
	assert.NotEqual(t, token1, token2)
}

func TestHMACCSRFGenerator_EmptySecret(t *testing.T) {
	gen := NewHMACCSRFGenerator("")

	token, err := gen.Generate("device-123")
	assert.Empty(t, token)
	assert.True(t, errors.Is(err, domain.ErrCSRFSecretMissing))
	assert.ErrorIs(t, gen.Verify("device-123", "x"), domain.ErrCSRFSecretMissing)
}

func TestHMACCSRFGenerator_Verify(t *testing.T) {
	gen := NewHMACCSRFGenerator(testCSRFSecret)
	token, err := gen.Generate("device-1")
	assert.NoError(t, err)

	assert.NoError(t, gen.Verify("device-1", token))
	assert.ErrorIs(t, gen.Verify("device-2", token), domain.ErrCSRFMismatch)
	assert.ErrorIs(t, gen.Verify("device-1", ""), domain.ErrCSRFMismatch)
	assert.ErrorIs(t, gen.Verify("device-1", "%%%not-base64"), domain.ErrCSRFMismatch)
}
