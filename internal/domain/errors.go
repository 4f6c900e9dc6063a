package domain

import "errors"

// Authentication errors.
var (
	ErrSessionInactive    = errors.New("session is not active")
	ErrMissingIdentity    = errors.New("missing identity in session")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrDuplicateAccount   = errors.New("user already registered")
	ErrAccessDenied       = errors.New("access denied")
	ErrProfileMissing     = errors.New("profile not found")
)

// Record errors.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrItemUnavailable   = errors.New("item is not available")
	ErrInvalidInput      = errors.New("invalid input")
)

// Token errors.
var (
	ErrCSRFSecretMissing = errors.New("CSRF secret not configured")
	ErrCSRFMismatch      = errors.New("CSRF token mismatch")
	ErrDeviceToken       = errors.New("invalid device token")
)

// External service errors.
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrStorageUnavailable = errors.New("object storage unavailable")
)

// Rate limiting errors.
var (
	ErrRateLimited = errors.New("rate limit exceeded")
)
