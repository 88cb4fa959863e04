// Package api provides the HTTP REST API server for agora.
//
// # Architecture
//
// The API is built on gorilla/mux. Every route under /api/v1 runs through
// the same middleware chain before its handler:
//
//	request id -> metrics -> body limit -> bearer auth -> tenant -> access engine
//
// so handlers never make authorization decisions themselves. They only
// apply the tenant (organization) and caller identity the chain resolved.
//
// # API Endpoints
//
// Content (type is one of issues, solutions, proposals, topics, media,
// suggestions, endorsements):
//
//	GET    /api/v1/{type}?region=...   list with vote tallies, issues add metadata
//	POST   /api/v1/{type}              create; owner is the caller, org the tenant
//	GET    /api/v1/{type}/{id}         one object with vote tallies
//	PUT    /api/v1/{type}/{id}         update title and body
//	DELETE /api/v1/{type}/{id}         soft delete
//
// Votes and regions:
//
//	POST /api/v1/votes                    vote or update an existing vote
//	PUT  /api/v1/regions/{id}/postcodes   replace postcodes, invalidating the cache
//
// Operations:
//
//	GET /healthz, /health/live, /health/ready
//	GET /metrics
//
// The tenant is named by the X-Organization header (its slug).
//
// # Usage
//
//	server := api.NewServer(api.Dependencies{Store: store, Tokens: tokens, ...})
//	http.ListenAndServe(":8080", server.Handler())
package api
