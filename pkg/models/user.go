package models

import "time"

// Role is a platform-wide role assigned to a user
type Role string

const (
	RoleGuest    Role = "guest"
	RoleUser     Role = "user"
	RoleEndorser Role = "endorser"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleUser, RoleEndorser, RoleAdmin:
		return true
	}
	return false
}

// User is an authenticated platform user
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Roles         []Role    `json:"roles"`
	Organizations []string  `json:"organizations,omitempty"`
	Verified      bool      `json:"verified"`
	PostalCode    string    `json:"postalCode,omitempty"`
	Woodfordian   string    `json:"woodfordian,omitempty"` // alternate postcode used by some tenants
	Provider      string    `json:"provider,omitempty"`
	ProviderID    string    `json:"providerId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// EffectiveRoles returns the user's role set, or {guest} when there is no
// identity or no assigned role. The result is never empty.
func (u *User) EffectiveRoles() []Role {
	if u == nil || len(u.Roles) == 0 {
		return []Role{RoleGuest}
	}
	return u.Roles
}

// HasRole reports whether the user holds role r
func (u *User) HasRole(r Role) bool {
	for _, role := range u.EffectiveRoles() {
		if role == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user is a platform admin
func (u *User) IsAdmin() bool {
	return u != nil && u.HasRole(RoleAdmin)
}

// Authenticated reports whether u carries an identity
func (u *User) Authenticated() bool {
	return u != nil && u.ID != ""
}
