package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/storage"
)

const (
	// TokenPrefix identifies agora API tokens
	TokenPrefix = "agora_"
	// TokenLength is the number of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

// ErrInvalidToken is returned for malformed, unknown or expired tokens
var ErrInvalidToken = errors.New("invalid token")

// GenerateToken creates a new API token.
// Format: agora_<base64url(32 random bytes)>
func GenerateToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = TokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes)
	return token, HashToken(token), nil
}

// HashToken computes the SHA256 hash of a token for lookup
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encoded := strings.TrimPrefix(token, TokenPrefix)
	if encoded == "" {
		return fmt.Errorf("token is too short")
	}
	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	return nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
// ok is false when no bearer credentials were sent.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// TokenStore persists token hashes
type TokenStore interface {
	storage.UserReader
	CreateToken(ctx context.Context, userID, tokenHash string, expiresAt *time.Time) error
}

// TokenManager issues API tokens and resolves them back to users
type TokenManager struct {
	store TokenStore
	now   func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(store TokenStore) *TokenManager {
	return &TokenManager{store: store, now: time.Now}
}

// Issue creates a token for userID. The raw token is returned once and only
// its hash is stored. A zero ttl means the token never expires.
func (tm *TokenManager) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token, hash, err := GenerateToken()
	if err != nil {
		return "", err
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := tm.now().Add(ttl)
		expiresAt = &t
	}
	if err := tm.store.CreateToken(ctx, userID, hash, expiresAt); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// Authenticate resolves a raw token to its user. Unknown and expired tokens
// return ErrInvalidToken; store outages are passed through.
func (tm *TokenManager) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if err := ValidateTokenFormat(token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := tm.store.GetUserByTokenHash(ctx, HashToken(token))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
