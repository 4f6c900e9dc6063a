package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"canteen/internal/domain"
)

// SignUpInput is the registration form.
type SignUpInput struct {
	Credentials
	FullName string `json:"full_name" form:"full_name" validate:"required,max=120"`
}

// SignUp registers an account and creates its profile.
type SignUp struct {
	auth     domain.Authenticator
	profiles domain.ProfileRepository
	logger   *slog.Logger
}

// NewSignUp creates a new SignUp usecase.
func NewSignUp(a domain.Authenticator, p domain.ProfileRepository, l *slog.Logger) *SignUp {
	return &SignUp{auth: a, profiles: p, logger: l}
}

// Execute registers the account and upserts a profile with role. The device
// is not signed in; the caller signs in afterwards.
func (uc *SignUp) Execute(ctx context.Context, in SignUpInput, role domain.Role) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	reg, err := uc.auth.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	if reg.UserID == "" {
		return nil, fmt.Errorf("%w: signup incomplete, check your inbox for confirmation", domain.ErrInvalidInput)
	}

	profile := domain.Profile{
		ID:       reg.UserID,
		FullName: strings.TrimSpace(in.FullName),
		Role:     role,
	}
	if err := uc.profiles.UpsertProfile(ctx, profile); err != nil {
		uc.logger.ErrorContext(ctx, "failed to create profile", "user_id", reg.UserID, "error", err)
		return nil, err
	}

	if reg.Session != nil {
		if err := uc.auth.SignOut(ctx, reg.Session.AccessToken); err != nil {
			uc.logger.WarnContext(ctx, "failed to revoke registration session", "user_id", reg.UserID, "error", err)
		}
	}

	uc.logger.InfoContext(ctx, "account registered", "user_id", reg.UserID, "role", role)
	return &profile, nil
}
