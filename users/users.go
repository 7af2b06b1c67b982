package users

import (
	"time"
)

// RoleType is the account role reported by the remote API
type RoleType string

const (
	RoleAdmin RoleType = "admin"
	RoleUser  RoleType = "user"
)

// Profile is the server's snapshot of the signed-in account. It is replaced
// wholesale on every fetch and never patched locally.
type Profile struct {
	ID        string    `json:"id"`         // UUID assigned by the server
	Email     string    `json:"email"`      // Login identifier
	FullName  string    `json:"full_name"`  // Display name
	Role      RoleType  `json:"role"`       // admin or user
	IsActive  bool      `json:"is_active"`  // Inactive accounts cannot sign in
	CreatedAt time.Time `json:"created_at"` // Registration time
	UpdatedAt time.Time `json:"updated_at"` // Last server-side change
}

// IsAdmin returns true if the account has the admin role
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// DisplayName prefers the full name and falls back to the email
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
