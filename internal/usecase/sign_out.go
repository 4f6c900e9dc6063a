package usecase

import (
	"context"
	"log/slog"
	"time"

	"canteen/internal/domain"
)

// SignOut forgets the device's identity locally and revokes it with the
// provider in the background.
type SignOut struct {
	auth     domain.Authenticator
	notifier domain.SessionNotifier
	timeout  time.Duration
	logger   *slog.Logger
}

// NewSignOut creates a new SignOut usecase. timeout bounds the background
// revocation.
func NewSignOut(a domain.Authenticator, n domain.SessionNotifier, timeout time.Duration, l *slog.Logger) *SignOut {
	return &SignOut{auth: a, notifier: n, timeout: timeout, logger: l}
}

// Execute clears the device storage and announces SIGNED_OUT before returning.
// The returned channel is closed once the provider call finished.
func (uc *SignOut) Execute(ctx context.Context, dev Device) <-chan struct{} {
	var token string
	if s, ok := dev.Storage.LoadSession(ctx); ok {
		token = s.AccessToken
	}

	if err := dev.Storage.Clear(ctx); err != nil {
		uc.logger.WarnContext(ctx, "failed to clear device storage", "device_id", dev.ID, "error", err)
	}
	uc.notifier.Publish(dev.ID, domain.EventSignedOut, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if token == "" {
			return
		}
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
		defer cancel()
		if err := uc.auth.SignOut(bg, token); err != nil {
			uc.logger.WarnContext(bg, "background sign-out failed", "device_id", dev.ID, "error", err)
		}
	}()
	return done
}
