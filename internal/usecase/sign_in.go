package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"canteen/internal/domain"
)

// SignIn authenticates a device with email and password.
type SignIn struct {
	auth     domain.Authenticator
	profiles domain.ProfileRepository
	notifier domain.SessionNotifier
	logger   *slog.Logger
}

// NewSignIn creates a new SignIn usecase.
func NewSignIn(a domain.Authenticator, p domain.ProfileRepository, n domain.SessionNotifier, l *slog.Logger) *SignIn {
	return &SignIn{auth: a, profiles: p, notifier: n, logger: l}
}

// Execute signs the device in. With role set, the account's profile must
// carry that role; otherwise the new session is revoked and ErrAccessDenied
// is returned.
func (uc *SignIn) Execute(ctx context.Context, dev Device, creds Credentials, role domain.Role) (*domain.Identity, error) {
	if role != "" {
		uc.dropPrevious(ctx, dev)
	}

	session, err := uc.auth.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		uc.logger.InfoContext(ctx, "sign-in rejected", "device_id", dev.ID, "error", err)
		return nil, err
	}

	profile, err := uc.profiles.GetProfile(ctx, session.UserID)
	switch {
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, err
	case role != "" && (profile == nil || profile.Role != role):
		if err := uc.auth.SignOut(ctx, session.AccessToken); err != nil {
			uc.logger.WarnContext(ctx, "failed to revoke rejected session", "user_id", session.UserID, "error", err)
		}
		return nil, fmt.Errorf("%w: only %s accounts can sign in here", domain.ErrAccessDenied, role)
	}

	if err := dev.Storage.SaveSession(ctx, session); err != nil {
		uc.logger.WarnContext(ctx, "failed to persist session", "device_id", dev.ID, "error", err)
	}
	if profile != nil {
		if err := dev.Storage.SaveProfile(ctx, profile); err != nil {
			uc.logger.WarnContext(ctx, "failed to persist profile", "device_id", dev.ID, "error", err)
		}
	}
	uc.notifier.Publish(dev.ID, domain.EventSignedIn, session)

	uc.logger.InfoContext(ctx, "signed in", "device_id", dev.ID, "user_id", session.UserID)
	return &domain.Identity{Session: session, Profile: profile}, nil
}

// dropPrevious forgets any session the device already holds.
func (uc *SignIn) dropPrevious(ctx context.Context, dev Device) {
	previous, ok := dev.Storage.LoadSession(ctx)
	if !ok {
		return
	}
	if err := dev.Storage.Clear(ctx); err != nil {
		uc.logger.WarnContext(ctx, "failed to clear device storage", "device_id", dev.ID, "error", err)
	}
	uc.notifier.Publish(dev.ID, domain.EventSignedOut, nil)
	if err := uc.auth.SignOut(ctx, previous.AccessToken); err != nil {
		uc.logger.WarnContext(ctx, "failed to revoke previous session", "device_id", dev.ID, "error", err)
	}
}
