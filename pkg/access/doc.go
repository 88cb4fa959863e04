// Package access decides whether a request may proceed.
//
// The Engine combines three sources, in order: authors may always act on
// their own content; the static role table in pkg/rbac; and, for mutations
// only, delegated standing as owner or moderator of the relevant
// organization. Failures are split so that an unverified caller is steered
// toward verification while a verified caller probing someone else's content
// gets a plain 403.
//
//	engine := access.NewEngine(nil, access.NewOwnershipResolver(store), metrics)
//	router.Use(access.Middleware(engine, access.NewStoreTargetLoader(store)))
package access
