package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/platinummonkey/agora/pkg/models"
)

// CreateOrganization inserts an organization and its moderators. The slug is
// derived from the name when empty.
func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = s.newID()
	}
	if org.Slug == "" {
		org.Slug = generateSlug(org.Name)
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = s.now()
	}
	rules, err := json.Marshal(org.VoteEligibility)
	if err != nil {
		return fmt.Errorf("failed to marshal vote eligibility: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("create organization", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO organizations (id, name, slug, owner_id, vote_eligibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		org.ID, org.Name, org.Slug, nullString(org.OwnerID), string(rules), org.CreatedAt)
	if err != nil {
		return unavailable("create organization", err)
	}
	for _, mod := range uniqueStrings(org.Moderators) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO organization_moderators (organization_id, user_id) VALUES ($1, $2)`,
			org.ID, mod); err != nil {
			return unavailable("add moderator", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return unavailable("create organization", err)
	}
	return nil
}

// GetOrganization retrieves an organization by id, moderators included
func (s *Store) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	return s.getOrganization(ctx, "id", id)
}

// GetOrganizationBySlug retrieves an organization by its tenant slug
func (s *Store) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return s.getOrganization(ctx, "slug", slug)
}

func (s *Store) getOrganization(ctx context.Context, column, value string) (*models.Organization, error) {
	query := `
		SELECT id, name, slug, owner_id, vote_eligibility, created_at
		FROM organizations
		WHERE ` + column + ` = $1`

	var (
		org       models.Organization
		owner     sql.NullString
		rulesJSON string
	)
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&org.ID, &org.Name, &org.Slug, &owner, &rulesJSON, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("organization", value)
	}
	if err != nil {
		return nil, unavailable("get organization", err)
	}
	org.OwnerID = stringPtr(owner)
	if err := json.Unmarshal([]byte(rulesJSON), &org.VoteEligibility); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vote eligibility: %w", err)
	}

	mods, err := s.listModerators(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	org.Moderators = mods
	return &org, nil
}

func (s *Store) listModerators(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM organization_moderators WHERE organization_id = $1 ORDER BY user_id`, orgID)
	if err != nil {
		return nil, unavailable("list moderators", err)
	}
	defer rows.Close()

	mods := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scan moderator", err)
		}
		mods = append(mods, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list moderators", err)
	}
	return mods, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)

// generateSlug creates a URL-safe slug from a name
func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = slugInvalid.ReplaceAllString(slug, "")
	return strings.Trim(slug, "-")
}
