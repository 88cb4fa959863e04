// Package middleware provides the request pipeline that runs ahead of the
// access engine.
//
// # Middleware Components
//
// RequestIDMiddleware: request id plus context logger
//
//	router.Use(middleware.RequestIDMiddleware(logger))
//
// AuthMiddleware: bearer token authentication. Requests without an
// Authorization header continue anonymously.
//
//	router.Use(middleware.NewAuthMiddleware(tokenManager).Handler)
//
// OrgContextMiddleware: resolve the tenant from {org} or X-Organization
//
//	router.Use(middleware.OrgContextMiddleware(store))
//
// RateLimitMiddleware: Redis-backed fixed window, keyed by user id or client IP
//
//	limiter := middleware.NewRateLimiter(redisClient, middleware.DefaultRateLimitConfig(), "")
//	votes.Use(middleware.NewRateLimitMiddleware(limiter).Handler)
//
// # Related Packages
//
//   - pkg/auth: token validation
//   - pkg/access: authorization decisions
package middleware
