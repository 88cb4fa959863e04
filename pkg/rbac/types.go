package rbac

import (
	"net/http"
	"strings"
)

// ResourceClass groups routes for permission purposes. Permissions are granted
// per class, never per concrete path.
type ResourceClass string

const (
	// ClassCollection covers list/create endpoints, e.g. /api/v1/issues
	ClassCollection ResourceClass = "collection"
	// ClassObject covers entity-by-id endpoints, e.g. /api/v1/issues/{id}
	ClassObject ResourceClass = "object"
)

// Verb is an HTTP verb as understood by the permission table
type Verb string

const (
	VerbGet    Verb = "get"
	VerbPost   Verb = "post"
	VerbPut    Verb = "put"
	VerbDelete Verb = "delete"
)

// AllVerbs lists every verb the table knows about
var AllVerbs = []Verb{VerbGet, VerbPost, VerbPut, VerbDelete}

// VerbFromMethod maps an HTTP method onto a Verb. HEAD reads as get and PATCH
// writes as put; anything else is returned lowercased and will never be
// granted.
func VerbFromMethod(method string) Verb {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return VerbGet
	case http.MethodPost:
		return VerbPost
	case http.MethodPut, http.MethodPatch:
		return VerbPut
	case http.MethodDelete:
		return VerbDelete
	}
	return Verb(strings.ToLower(method))
}

// Mutating reports whether v changes state
func (v Verb) Mutating() bool {
	return v != VerbGet
}

// Permission represents a specific permission (resource class + verb)
type Permission struct {
	Class ResourceClass `json:"class"`
	Verb  Verb          `json:"verb"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Class) + ":" + string(p.Verb)
}

// Resource is a classified request path
type Resource struct {
	Type  string        `json:"type"`
	Class ResourceClass `json:"class"`
	ID    string        `json:"id,omitempty"`
}

// PermissionCheckResult represents the result of a permission check
type PermissionCheckResult struct {
	Allowed      bool       `json:"allowed"`
	Reason       string     `json:"reason,omitempty"`
	MatchedRoles []string   `json:"matched_roles,omitempty"`
	Permission   Permission `json:"permission"`
	Resource     *Resource  `json:"resource,omitempty"`
}
