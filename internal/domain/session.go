package domain

import "time"

// Role is the coarse authorization category of a profile.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleStaff
}

// Session is the backend-issued proof of authentication for a subject user.
type Session struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Profile is the application-level record describing a user.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Identity is the (session, profile) pair a request trusts.
// A nil Session means anonymous.
type Identity struct {
	Session *Session
	Profile *Profile
}

// Authenticated reports whether the identity carries a session.
func (i Identity) Authenticated() bool {
	return i.Session != nil
}

// Complete reports whether both halves of the identity are known.
func (i Identity) Complete() bool {
	return i.Session != nil && i.Profile != nil
}

// HasRole reports whether the identity's profile carries role r.
func (i Identity) HasRole(r Role) bool {
	return i.Profile != nil && i.Profile.Role == r
}

// SessionEvent names a session-change notification.
type SessionEvent string

const (
	EventSignedIn       SessionEvent = "SIGNED_IN"
	EventSignedOut      SessionEvent = "SIGNED_OUT"
	EventTokenRefreshed SessionEvent = "TOKEN_REFRESHED"
)
