// Package rbac provides the static role/permission matrix used by the access
// decision engine.
//
// # Overview
//
// Permissions are granted per resource class rather than per path. Every
// route under /api/v1/ belongs to one of two classes:
//
//	collection - /api/v1/<type>       (list, create)
//	object     - /api/v1/<type>/<id>  (read, update, delete)
//
// The table maps each role to the verbs it may use on each class:
//
//	guest     collection{get}        object{get}
//	user      collection{get,post}   object{get}
//	endorser  collection{get,post}   object{get,put}
//	admin     every verb on both classes
//
// The table is built once and never mutated, so it is shared across requests
// without locking.
//
// # Usage
//
//	checker := rbac.NewPermissionChecker(nil)
//	result := checker.CheckPermission(user.EffectiveRoles(), r.Method, r.URL.Path)
//	if result.Allowed {
//		// proceed
//	}
//
// A negative result is not final: the access package falls back to ownership
// delegation for mutating verbs.
package rbac
