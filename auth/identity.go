package auth

import (
	"slices"
	"time"
)

// RoleAdmin is the role required by the admin surface.
const RoleAdmin = "admin"

// Method names the credential kind that produced an Identity.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Identity is an authenticated operator of the admin surface.
type Identity struct {
	Subject string
	Roles   []string
	Method  Method

	// ExpiresAt is zero for credentials that never expire.
	ExpiresAt time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// Expired reports whether the identity expired before now.
func (id *Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && now.After(id.ExpiresAt)
}
