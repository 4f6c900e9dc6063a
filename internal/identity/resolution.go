package identity

import "canteen/internal/domain"

// Source tags where an effective identity came from.
type Source int

const (
	// Unresolved means nothing trustworthy is known yet; callers must wait.
	Unresolved Source = iota
	// Cached means the identity was read from device-local persistence.
	Cached
	// Live means the identity was confirmed by the backend.
	Live
)

func (s Source) String() string {
	switch s {
	case Cached:
		return "cached"
	case Live:
		return "live"
	default:
		return "unresolved"
	}
}

// Resolution is an identity tagged with its source. An empty Identity under
// Cached or Live means "no session".
type Resolution struct {
	Source   Source
	Identity domain.Identity
}

// Resolved reports whether the resolution can be acted upon.
func (r Resolution) Resolved() bool {
	return r.Source != Unresolved
}

// FromCache builds the cached resolution from device-local entries.
func FromCache(session *domain.Session, profile *domain.Profile) Resolution {
	return Resolution{Source: Cached, Identity: domain.Identity{Session: session, Profile: profile}}
}

// Merge combines the resolver state with the cached resolution into the
// effective identity. It is pure.
//
// A live result wins once the resolver reached Authenticated or Anonymous.
// Blocked never grants. Otherwise a usable cached identity is returned, and
// Degraded with no session known from either source settles on "no session".
func Merge(state State, cached Resolution) Resolution {
	switch state.Phase {
	case PhaseAuthenticated, PhaseAnonymous:
		return Resolution{Source: Live, Identity: state.Live}
	case PhaseBlocked:
		return Resolution{Source: Unresolved}
	}

	if Usable(state, cached) {
		return cached
	}

	if state.Phase == PhaseDegraded && state.Live.Session == nil && cached.Identity.Session == nil {
		return Resolution{Source: Cached}
	}
	return Resolution{Source: Unresolved}
}

// Usable reports whether the cached identity may stand in for the live one:
// it must carry a session and a matching profile and, once a live session is
// known, belong to the same subject.
func Usable(state State, cached Resolution) bool {
	if cached.Source != Cached || !cached.Identity.Complete() {
		return false
	}
	subject := cached.Identity.Session.UserID
	if cached.Identity.Profile.ID != "" && cached.Identity.Profile.ID != subject {
		return false
	}
	if state.Live.Session != nil && state.Live.Session.UserID != subject {
		return false
	}
	return true
}
