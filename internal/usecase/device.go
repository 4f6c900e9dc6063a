package usecase

import "canteen/internal/domain"

// Device is the caller's device: its id on the session stream and its
// local persistence.
type Device struct {
	ID      string
	Storage domain.DeviceStorage
}

// Credentials is an email/password pair submitted to an auth form.
type Credentials struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6"`
}
