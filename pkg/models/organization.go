package models

import "time"

// EligibilityRule maps an external role string to whether holders may vote
type EligibilityRule struct {
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

// Organization is a tenant. Ownership and moderation of content is delegated
// through it.
type Organization struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Slug            string            `json:"slug"`
	OwnerID         *string           `json:"owner,omitempty"`
	Moderators      []string          `json:"moderators"`
	VoteEligibility []EligibilityRule `json:"voteEligibility,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// IsOwner reports whether userID owns the organization
func (o *Organization) IsOwner(userID string) bool {
	return o != nil && o.OwnerID != nil && userID != "" && *o.OwnerID == userID
}

// IsModerator reports whether userID moderates the organization
func (o *Organization) IsModerator(userID string) bool {
	if o == nil || userID == "" {
		return false
	}
	for _, m := range o.Moderators {
		if m == userID {
			return true
		}
	}
	return false
}

// HasStanding reports whether userID is the owner or a moderator
func (o *Organization) HasStanding(userID string) bool {
	return o.IsOwner(userID) || o.IsModerator(userID)
}

// Region is a named geofence used to restrict vote tallies by voter postcode
type Region struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Suburbs   []string `json:"suburbs"`
	Postcodes []string `json:"postcodes"`
}
