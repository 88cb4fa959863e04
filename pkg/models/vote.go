package models

import (
	"fmt"
	"time"
)

// VoteValue is a voter's position on an object
type VoteValue float64

var validVoteValues = []VoteValue{-1, -0.5, 0, 0.5, 1}

// ParseVoteValue validates v against the allowed values
func ParseVoteValue(v float64) (VoteValue, error) {
	for _, allowed := range validVoteValues {
		if VoteValue(v) == allowed {
			return allowed, nil
		}
	}
	return 0, fmt.Errorf("vote value %v not in %v", v, validVoteValues)
}

// Positive reports whether the value counts as an up vote
func (v VoteValue) Positive() bool {
	return v > 0
}

// Vote is a single user's vote on an object. At most one exists per
// (object, user) pair.
type Vote struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user"`
	Object         ObjectRef `json:"object"`
	OrganizationID string    `json:"organizationId,omitempty"`
	Value          VoteValue `json:"voteValue"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	// Populated by the store on join reads for geofencing; not serialised.
	Voter *Voter `json:"-"`
	// RawObjectType is the discriminator as stored, before normalisation.
	RawObjectType string `json:"-"`
}

// Voter carries the postcode fields of the user who cast a vote
type Voter struct {
	PostalCode  string
	Woodfordian string
}

// VoteSummary is the per-object tally attached on read
type VoteSummary struct {
	Up          int   `json:"up"`
	Down        int   `json:"down"`
	Total       int   `json:"total"`
	CurrentUser *Vote `json:"currentUser"`
}

// VoteTotals is an aggregate tally without the caller's vote
type VoteTotals struct {
	Up    int `json:"up"`
	Down  int `json:"down"`
	Total int `json:"total"`
}

// IssueMetadata is derived from the solutions attached to an issue
type IssueMetadata struct {
	Votes              VoteTotals `json:"votes"`
	SolutionCount      int        `json:"solutionCount"`
	TotalTrendingScore float64    `json:"totalTrendingScore"`
	LastCreated        time.Time  `json:"lastCreated"`
}
