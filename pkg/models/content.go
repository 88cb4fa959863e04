package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind discriminates content object types
type Kind string

const (
	KindIssue        Kind = "Issue"
	KindSolution     Kind = "Solution"
	KindProposal     Kind = "Proposal"
	KindMedia        Kind = "Media"
	KindSuggestion   Kind = "Suggestion"
	KindEndorsement  Kind = "Endorsement"
	KindTopic        Kind = "Topic"
	KindOrganization Kind = "Organization"
)

// ContentKinds lists every votable, tenant-scoped kind
var ContentKinds = []Kind{
	KindIssue, KindSolution, KindProposal, KindMedia,
	KindSuggestion, KindEndorsement, KindTopic,
}

var allKinds = append(append([]Kind{}, ContentKinds...), KindOrganization)

// ParseKind resolves s to a Kind. Legacy lowercase spellings ("issue") are
// accepted; legacy is true when s was not already canonical.
func ParseKind(s string) (k Kind, legacy bool, err error) {
	for _, kind := range allKinds {
		if string(kind) == s {
			return kind, false, nil
		}
		if strings.EqualFold(string(kind), s) {
			return kind, true, nil
		}
	}
	return "", false, fmt.Errorf("unknown object type %q", s)
}

var kindByCollection = map[string]Kind{
	"issues":       KindIssue,
	"solutions":    KindSolution,
	"proposals":    KindProposal,
	"media":        KindMedia,
	"suggestions":  KindSuggestion,
	"endorsements": KindEndorsement,
	"topics":       KindTopic,
}

// KindForCollection maps a route segment such as "issues" to its content
// Kind. Non-content segments (votes, organizations, regions) return false.
func KindForCollection(segment string) (Kind, bool) {
	k, ok := kindByCollection[segment]
	return k, ok
}

// Collections returns the route segment of every content kind, sorted
func Collections() []string {
	out := make([]string, 0, len(kindByCollection))
	for segment := range kindByCollection {
		out = append(out, segment)
	}
	sort.Strings(out)
	return out
}

// ObjectRef is a typed reference to another object
type ObjectRef struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r ObjectRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// ContentObject is the superset of every tenant-scoped content type
type ContentObject struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	OwnerID        *string    `json:"owner,omitempty"`
	OrganizationID *string    `json:"organizations,omitempty"`
	Title          string     `json:"title"`
	Body           string     `json:"body,omitempty"`
	IssueIDs       []string   `json:"issues,omitempty"`
	Parent         *ObjectRef `json:"parent,omitempty"`
	SoftDeleted    bool       `json:"softDeleted"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	// Derived on read, never stored.
	Votes *VoteSummary   `json:"votes,omitempty"`
	Meta  *IssueMetadata `json:"meta,omitempty"`
}

// Ref returns the object's typed reference
func (c *ContentObject) Ref() ObjectRef {
	return ObjectRef{Kind: c.Kind, ID: c.ID}
}

// References reports whether the solution c is attached to issueID
func (c *ContentObject) References(issueID string) bool {
	for _, id := range c.IssueIDs {
		if id == issueID {
			return true
		}
	}
	return false
}
