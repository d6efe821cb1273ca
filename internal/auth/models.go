// Package auth issues and verifies operator bearer tokens for the pickup API.
package auth

import (
	"slices"
	"time"
)

// Role grants access to a class of endpoints.
type Role string

const (
	// RoleDispatcher may plan tours and edit the roster.
	RoleDispatcher Role = "dispatcher"

	// RoleAdmin may additionally change feature flags.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDispatcher || r == RoleAdmin
}

// Operator is the authenticated caller behind a token.
type Operator struct {
	ID    string `json:"operatorId"`
	Name  string `json:"name,omitempty"`
	Roles []Role `json:"roles"`
}

// HasRole reports whether the operator holds role. Admins hold every role.
func (o *Operator) HasRole(role Role) bool {
	if o == nil {
		return false
	}
	return slices.Contains(o.Roles, role) || slices.Contains(o.Roles, RoleAdmin)
}

// TokenResponse is returned by token minting.
type TokenResponse struct {
	// AccessToken is the signed JWT.
	AccessToken string `json:"accessToken"`

	// TokenType is always "Bearer".
	TokenType string `json:"tokenType"`

	// ExpiresIn is the number of seconds until the token expires.
	ExpiresIn int64 `json:"expiresIn"`

	ExpiresAt time.Time `json:"expiresAt"`
	Operator  *Operator `json:"operator"`
}
