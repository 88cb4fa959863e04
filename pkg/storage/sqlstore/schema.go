package sqlstore

import (
	"context"
	"fmt"
)

// schema is portable across PostgreSQL and SQLite. Tallies are deliberately
// absent: they are recomputed on every read.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		roles TEXT NOT NULL DEFAULT '[]',
		organizations TEXT NOT NULL DEFAULT '[]',
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		postal_code TEXT NOT NULL DEFAULT '',
		woodfordian TEXT NOT NULL DEFAULT '',
		provider TEXT NOT NULL DEFAULT '',
		provider_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS api_tokens (
		token_hash TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		owner_id TEXT,
		vote_eligibility TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS organization_moderators (
		organization_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (organization_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS content_objects (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		owner_id TEXT,
		organization_id TEXT,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		parent_kind TEXT,
		parent_id TEXT,
		soft_deleted BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS content_objects_kind_org ON content_objects (kind, organization_id)`,
	`CREATE TABLE IF NOT EXISTS solution_issues (
		solution_id TEXT NOT NULL,
		issue_id TEXT NOT NULL,
		PRIMARY KEY (solution_id, issue_id)
	)`,
	`CREATE INDEX IF NOT EXISTS solution_issues_issue ON solution_issues (issue_id)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		object_id TEXT NOT NULL,
		object_type TEXT NOT NULL,
		organization_id TEXT NOT NULL DEFAULT '',
		vote_value DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (object_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS regions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		suburbs TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS region_postcodes (
		region_id TEXT NOT NULL,
		postcode TEXT NOT NULL,
		PRIMARY KEY (region_id, postcode)
	)`,
}

// Migrate creates any missing tables. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
