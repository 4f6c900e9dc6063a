package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"canteen/internal/domain"
	"canteen/internal/identity"
)

// Resolvers hands out the per-device identity resolver.
type Resolvers interface {
	Resolver(deviceID string) *identity.Resolver
}

// GuardConfig configures a Guard.
type GuardConfig struct {
	Routes identity.Routes
	// SettleWait is how long a request may wait for an unsettled identity
	// before the guard answers "loading".
	SettleWait time.Duration
	// Record, when set, observes every decision.
	Record func(identity.Outcome, identity.Source)
}

// Guard is the route guard middleware.
type Guard struct {
	resolvers Resolvers
	cfg       GuardConfig
	logger    *slog.Logger
}

// NewGuard creates a new Guard.
func NewGuard(resolvers Resolvers, cfg GuardConfig, logger *slog.Logger) *Guard {
	if cfg.Record == nil {
		cfg.Record = func(identity.Outcome, identity.Source) {}
	}
	return &Guard{resolvers: resolvers, cfg: cfg, logger: logger}
}

type loadingResponse struct {
	State string `json:"state"`
}

type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// Require returns middleware letting the request through only when req is
// met. Otherwise it answers 202 while the identity is unsettled or 303 to
// the redirect target.
func (g *Guard) Require(req identity.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			dev := deviceFrom(c)
			r := g.resolvers.Resolver(dev.ID)
			path := c.Request().URL.Path

			decision, phase := g.decide(ctx, r, dev.Storage, req, path)
			if decision.Outcome == identity.OutcomeWait && g.cfg.SettleWait > 0 {
				if g.awaitSettled(ctx, r) {
					decision, phase = g.decide(ctx, r, dev.Storage, req, path)
				}
			}
			g.cfg.Record(decision.Outcome, decision.Source)

			switch decision.Outcome {
			case identity.OutcomeWait:
				g.logger.DebugContext(ctx, "identity not settled", "device_id", dev.ID, "phase", phase.String(), "path", path)
				c.Response().Header().Set("Retry-After", "1")
				return c.JSON(http.StatusAccepted, loadingResponse{State: "loading"})
			case identity.OutcomeRedirect:
				c.Response().Header().Set(echo.HeaderLocation, decision.Location)
				return c.JSON(http.StatusSeeOther, redirectResponse{Redirect: decision.Location})
			}

			c.Set(ctxDecision, decision)
			c.Set(ctxPhase, phase)
			return next(c)
		}
	}
}

func (g *Guard) decide(ctx context.Context, r *identity.Resolver, storage domain.DeviceStorage, req identity.Requirement, path string) (identity.Decision, identity.Phase) {
	state := r.State()
	session, _ := storage.LoadSession(ctx)
	profile, _ := storage.LoadProfile(ctx)
	res := identity.Merge(state, identity.FromCache(session, profile))
	return identity.Authorize(res, req, g.cfg.Routes, path), state.Phase
}

// awaitSettled reports whether the resolver settled within the wait.
func (g *Guard) awaitSettled(ctx context.Context, r *identity.Resolver) bool {
	timer := time.NewTimer(g.cfg.SettleWait)
	defer timer.Stop()

	select {
	case <-r.Settled():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}
