// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the server are defined here so that key usage
// stays discoverable:
//
//	ctx = contextkeys.WithUser(ctx, user)
//	user := contextkeys.GetUser(ctx)
package contextkeys

import (
	"context"

	"github.com/platinummonkey/agora/pkg/models"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains *models.User
	// Set by: middleware.AuthMiddleware
	// Required by: access middleware, vote handlers
	UserKey Key = "user"

	// OrgKey contains *models.Organization
	// Set by: middleware.OrgContextMiddleware
	// Required by: org-scoped listing, create, vote casting
	OrgKey Key = "organization"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestIDMiddleware
	// Used by: Logger
	RequestIDKey Key = "request_id"

	// UserIDKey contains user ID string
	// Set by: middleware.AuthMiddleware after authentication
	// Used by: Logger
	UserIDKey Key = "user_id"

	// LoggerKey contains *observability.Logger
	// Set by: middleware.RequestIDMiddleware
	LoggerKey Key = "logger"
)

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user *models.User) context.Context {
	ctx = context.WithValue(ctx, UserKey, user)
	if user != nil {
		ctx = context.WithValue(ctx, UserIDKey, user.ID)
	}
	return ctx
}

// GetUser returns the authenticated user or nil for anonymous requests
func GetUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}

// WithOrg adds organization to the context
func WithOrg(ctx context.Context, org *models.Organization) context.Context {
	return context.WithValue(ctx, OrgKey, org)
}

// GetOrg returns the request's organization, if one was resolved
func GetOrg(ctx context.Context) *models.Organization {
	org, _ := ctx.Value(OrgKey).(*models.Organization)
	return org
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
