package rbac

import (
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
)

// Checker evaluates role-based permissions for a request
type Checker interface {
	// CheckPermission checks whether any of the roles grants method on path
	CheckPermission(roles []models.Role, method, path string) *PermissionCheckResult
}

// PermissionChecker implements Checker over a static Table
type PermissionChecker struct {
	table *Table
}

// NewPermissionChecker creates a checker. A nil table uses DefaultTable.
func NewPermissionChecker(table *Table) *PermissionChecker {
	if table == nil {
		table = DefaultTable()
	}
	return &PermissionChecker{table: table}
}

// CheckPermission classifies path and consults the table
func (pc *PermissionChecker) CheckPermission(roles []models.Role, method, path string) *PermissionCheckResult {
	verb := VerbFromMethod(method)
	resource, ok := Classify(path)
	if !ok {
		return &PermissionCheckResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("unclassified path %s", path),
			Permission: Permission{Verb: verb},
		}
	}

	perm := Permission{Class: resource.Class, Verb: verb}
	allowed, matched := pc.table.Allows(roles, resource.Class, verb)

	result := &PermissionCheckResult{
		Allowed:      allowed,
		MatchedRoles: matched,
		Permission:   perm,
		Resource:     &resource,
	}
	if allowed {
		result.Reason = fmt.Sprintf("granted by roles: %v", matched)
	} else {
		result.Reason = "no matching role found"
	}
	return result
}
