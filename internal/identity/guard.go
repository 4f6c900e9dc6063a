package identity

import (
	"net/url"

	"canteen/internal/domain"
)

// Requirement is what a screen demands of the effective identity.
type Requirement struct {
	Authenticated bool
	Role          domain.Role
}

var (
	// Public screens render for anyone.
	Public = Requirement{}
	// SignedIn screens need a session of any role.
	SignedIn = Requirement{Authenticated: true}
)

// RequireRole demands a session whose profile carries role.
func RequireRole(role domain.Role) Requirement {
	return Requirement{Authenticated: true, Role: role}
}

// Outcome is the guard's answer.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeWait
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeWait:
		return "wait"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the guard result for one request.
type Decision struct {
	Outcome  Outcome
	Location string
	Identity domain.Identity
	Source   Source
}

// Routes are the redirect targets used by the guard.
type Routes struct {
	// AnonymousEntry receives requests without a session; the requested path
	// is passed along as the "from" query parameter.
	AnonymousEntry string
	// DefaultLanding receives authenticated requests with the wrong role.
	DefaultLanding string
}

// DefaultRoutes are the routes of the canteen screens.
var DefaultRoutes = Routes{
	AnonymousEntry: "/student-auth",
	DefaultLanding: "/menu",
}

// Authorize decides whether the request for path may render.
func Authorize(res Resolution, req Requirement, routes Routes, path string) Decision {
	if !req.Authenticated {
		return Decision{Outcome: OutcomeAllow, Identity: res.Identity, Source: res.Source}
	}
	if !res.Resolved() {
		return Decision{Outcome: OutcomeWait}
	}

	id := res.Identity
	if !id.Authenticated() {
		return Decision{Outcome: OutcomeRedirect, Location: withFrom(routes.AnonymousEntry, path), Source: res.Source}
	}
	if req.Role != "" {
		if id.Profile == nil {
			// Session without a profile is never granted a role.
			return Decision{Outcome: OutcomeWait}
		}
		if !id.HasRole(req.Role) {
			return Decision{Outcome: OutcomeRedirect, Location: routes.DefaultLanding, Identity: id, Source: res.Source}
		}
	}
	return Decision{Outcome: OutcomeAllow, Identity: id, Source: res.Source}
}

func withFrom(entry, path string) string {
	if path == "" {
		return entry
	}
	return entry + "?from=" + url.QueryEscape(path)
}
