// Package users adapts the admin user endpoints of the API to the
// collection View and Engine.
package users

import (
	"fmt"
	"net/mail"

	"github.com/zjrosen/taskdeck/internal/session"
)

// User is a user record as listed by the server. Passwords are never
// returned and never cached.
type User struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Key returns the user id.
func (u User) Key() string { return u.ID }

// Patch is a partial user update. Nil fields are not sent.
type Patch struct {
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Email == nil && p.Role == nil && p.Password == nil
}

// Validate checks the role and email before sending.
func (p Patch) Validate() error {
	if p.Empty() {
		return fmt.Errorf("no fields provided for update")
	}
	if p.Role != nil {
		if _, ok := session.ParseRole(*p.Role); !ok {
			return fmt.Errorf("invalid role %q (want user or admin)", *p.Role)
		}
	}
	if p.Email != nil {
		if _, err := mail.ParseAddress(*p.Email); err != nil {
			return fmt.Errorf("invalid email %q", *p.Email)
		}
	}
	if p.Password != nil && *p.Password == "" {
		return fmt.Errorf("password must not be empty")
	}
	return nil
}

// Merge returns u with email and role from p applied. The password is
// write-only and is not reflected in the cached record.
func Merge(u User, p Patch) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	return u
}
