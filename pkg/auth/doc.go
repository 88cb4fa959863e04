// Package auth issues and verifies bearer API tokens.
//
// Tokens look like agora_<base64url(32 random bytes)>. Only the SHA256 hash is
// stored; the raw token is shown to the caller once at issue time.
//
//	manager := auth.NewTokenManager(store)
//	token, err := manager.Issue(ctx, user.ID, 90*24*time.Hour)
//	user, err := manager.Authenticate(ctx, token)
package auth
