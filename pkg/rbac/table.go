package rbac

import (
	"github.com/platinummonkey/agora/pkg/models"
)

type verbSet map[Verb]struct{}

func verbs(vs ...Verb) verbSet {
	set := make(verbSet, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return set
}

// Table is an immutable role -> class -> verbs matrix. A Table is never
// modified after construction and is safe for concurrent use.
type Table struct {
	grants map[models.Role]map[ResourceClass]verbSet
}

// defaultTable is built once at process start.
var defaultTable = &Table{
	grants: map[models.Role]map[ResourceClass]verbSet{
		models.RoleGuest: {
			ClassCollection: verbs(VerbGet),
			ClassObject:     verbs(VerbGet),
		},
		models.RoleUser: {
			ClassCollection: verbs(VerbGet, VerbPost),
			ClassObject:     verbs(VerbGet),
		},
		models.RoleEndorser: {
			ClassCollection: verbs(VerbGet, VerbPost),
			ClassObject:     verbs(VerbGet, VerbPut),
		},
		models.RoleAdmin: {
			ClassCollection: verbs(AllVerbs...),
			ClassObject:     verbs(AllVerbs...),
		},
	},
}

// DefaultTable returns the process-wide permission table
func DefaultTable() *Table {
	return defaultTable
}

// Grants reports whether a single role may perform verb on class
func (t *Table) Grants(role models.Role, class ResourceClass, verb Verb) bool {
	classes, ok := t.grants[role]
	if !ok {
		return false
	}
	set, ok := classes[class]
	if !ok {
		return false
	}
	_, ok = set[verb]
	return ok
}

// Allows reports whether any of roles grants verb on class, returning the
// roles that matched.
func (t *Table) Allows(roles []models.Role, class ResourceClass, verb Verb) (bool, []string) {
	var matched []string
	for _, role := range roles {
		if t.Grants(role, class, verb) {
			matched = append(matched, string(role))
		}
	}
	return len(matched) > 0, matched
}

// Permissions returns every permission granted to role
func (t *Table) Permissions(role models.Role) []Permission {
	var perms []Permission
	for _, class := range []ResourceClass{ClassCollection, ClassObject} {
		for _, verb := range AllVerbs {
			if t.Grants(role, class, verb) {
				perms = append(perms, Permission{Class: class, Verb: verb})
			}
		}
	}
	return perms
}
