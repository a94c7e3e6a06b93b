// Package session owns the authenticated session: who is logged in, with
// which role and bearer credential. The Store is the only place that state
// lives and the Controller is the only writer.
package session

import (
	"time"
)

// Status is the lifecycle of the last login or registration attempt.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Role is the server-assigned authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole maps a server role string to a Role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Session is an immutable snapshot. Empty strings mean "not set": no
// Credential means unauthenticated, and Role is only meaningful with one.
type Session struct {
	Identity   string
	Role       Role
	Credential string
	Status     Status
	LastError  string

	// ExpiresAt comes from the credential's exp claim when readable. It is
	// a display hint only; the server decides validity.
	ExpiresAt time.Time
}

// Authenticated reports whether a credential is held.
func (s Session) Authenticated() bool {
	return s.Credential != ""
}

// IsAdmin reports whether the session holds a credential with the admin role.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == RoleAdmin
}

// Expired reports whether the credential's exp claim is before now.
func (s Session) Expired(now time.Time) bool {
	return s.Authenticated() && !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
