package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/agora/pkg/models"
)

const userColumns = `u.id, u.username, u.roles, u.organizations, u.verified, u.postal_code,
	u.woodfordian, u.provider, u.provider_id, u.created_at`

// CreateUser inserts a user, assigning an id when empty
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = s.newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	roles, err := json.Marshal(u.Roles)
	if err != nil {
		return fmt.Errorf("failed to marshal roles: %w", err)
	}
	orgs, err := json.Marshal(u.Organizations)
	if err != nil {
		return fmt.Errorf("failed to marshal organizations: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, roles, organizations, verified, postal_code,
			woodfordian, provider, provider_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		u.ID, u.Username, string(roles), string(orgs), u.Verified, u.PostalCode,
		u.Woodfordian, u.Provider, u.ProviderID, u.CreatedAt)
	if err != nil {
		return unavailable("create user", err)
	}
	return nil
}

// GetUser retrieves a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, unavailable("get user", err)
	}
	return u, nil
}

// CreateToken stores the hash of an API token issued to userID
func (s *Store) CreateToken(ctx context.Context, userID, tokenHash string, expiresAt *time.Time) error {
	var expires sql.NullTime
	if expiresAt != nil {
		expires = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_tokens (token_hash, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`, tokenHash, userID, s.now(), expires)
	if err != nil {
		return unavailable("create token", err)
	}
	return nil
}

// GetUserByTokenHash resolves the owner of an unexpired API token
func (s *Store) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN api_tokens t ON t.user_id = u.id
		WHERE t.token_hash = $1 AND (t.expires_at IS NULL OR t.expires_at > $2)`,
		tokenHash, s.now())
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("token", "")
	}
	if err != nil {
		return nil, unavailable("get user by token", err)
	}
	return u, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u         models.User
		rolesJSON string
		orgsJSON  string
	)
	err := row.Scan(&u.ID, &u.Username, &rolesJSON, &orgsJSON, &u.Verified, &u.PostalCode,
		&u.Woodfordian, &u.Provider, &u.ProviderID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(rolesJSON), &u.Roles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roles: %w", err)
	}
	if err := json.Unmarshal([]byte(orgsJSON), &u.Organizations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal organizations: %w", err)
	}
	return &u, nil
}
