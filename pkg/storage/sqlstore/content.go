package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/storage"
)

const contentColumns = `id, kind, owner_id, organization_id, title, body, parent_kind, parent_id,
	soft_deleted, created_at, updated_at`

// CreateObject inserts a content object and, for solutions, its issue links
func (s *Store) CreateObject(ctx context.Context, obj *models.ContentObject) error {
	if obj.ID == "" {
		obj.ID = s.newID()
	}
	now := s.now()
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = now
	}
	obj.UpdatedAt = now

	var parentKind, parentID sql.NullString
	if obj.Parent != nil {
		parentKind = sql.NullString{String: string(obj.Parent.Kind), Valid: true}
		parentID = sql.NullString{String: obj.Parent.ID, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("create object", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO content_objects (`+contentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		obj.ID, string(obj.Kind), nullString(obj.OwnerID), nullString(obj.OrganizationID),
		obj.Title, obj.Body, parentKind, parentID, obj.SoftDeleted, obj.CreatedAt, obj.UpdatedAt)
	if err != nil {
		return unavailable("create object", err)
	}

	obj.IssueIDs = uniqueStrings(obj.IssueIDs)
	for _, issueID := range obj.IssueIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO solution_issues (solution_id, issue_id) VALUES ($1, $2)`,
			obj.ID, issueID); err != nil {
			return unavailable("link solution", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("create object", err)
	}
	return nil
}

// GetObject retrieves a content object by id, soft-deleted or not
func (s *Store) GetObject(ctx context.Context, id string) (*models.ContentObject, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_objects WHERE id = $1`, id)
	obj, err := scanObject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("object", id)
	}
	if err != nil {
		return nil, unavailable("get object", err)
	}
	if err := s.loadIssueLinks(ctx, []*models.ContentObject{obj}); err != nil {
		return nil, err
	}
	return obj, nil
}

// ListObjects lists objects of one kind, newest first
func (s *Store) ListObjects(ctx context.Context, filter storage.ContentFilter) ([]*models.ContentObject, error) {
	query := `SELECT ` + contentColumns + ` FROM content_objects WHERE kind = $1`
	args := []interface{}{string(filter.Kind)}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		query += fmt.Sprintf(" AND organization_id = $%d", len(args))
	}
	if !filter.IncludeDeleted {
		query += " AND soft_deleted = FALSE"
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	objs, err := s.queryObjects(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list objects", err)
	}
	if err := s.loadIssueLinks(ctx, objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// FindSolutionsByIssues returns live solutions attached to any of issueIDs
func (s *Store) FindSolutionsByIssues(ctx context.Context, issueIDs []string) ([]*models.ContentObject, error) {
	issueIDs = uniqueStrings(issueIDs)
	if len(issueIDs) == 0 {
		return []*models.ContentObject{}, nil
	}

	args := append([]interface{}{string(models.KindSolution)}, stringArgs(issueIDs)...)
	query := `
		SELECT ` + contentColumns + `
		FROM content_objects
		WHERE kind = $1 AND soft_deleted = FALSE AND id IN (
			SELECT solution_id FROM solution_issues WHERE issue_id IN (` + placeholders(2, len(issueIDs)) + `)
		)
		ORDER BY created_at DESC, id`

	objs, err := s.queryObjects(ctx, query, args...)
	if err != nil {
		return nil, unavailable("find solutions", err)
	}
	if err := s.loadIssueLinks(ctx, objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// UpdateObject rewrites the mutable fields of an object
func (s *Store) UpdateObject(ctx context.Context, obj *models.ContentObject) error {
	obj.UpdatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE content_objects SET title = $1, body = $2, updated_at = $3 WHERE id = $4`,
		obj.Title, obj.Body, obj.UpdatedAt, obj.ID)
	if err != nil {
		return unavailable("update object", err)
	}
	return expectRow(res, "object", obj.ID)
}

// SoftDeleteObject flags an object as deleted; rows are kept for audit
func (s *Store) SoftDeleteObject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE content_objects SET soft_deleted = TRUE, updated_at = $1 WHERE id = $2`, s.now(), id)
	if err != nil {
		return unavailable("delete object", err)
	}
	return expectRow(res, "object", id)
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return notFound(what, id)
	}
	return nil
}

func (s *Store) queryObjects(ctx context.Context, query string, args ...interface{}) ([]*models.ContentObject, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	objs := []*models.ContentObject{}
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, rows.Err()
}

// loadIssueLinks fills IssueIDs for every solution in objs
func (s *Store) loadIssueLinks(ctx context.Context, objs []*models.ContentObject) error {
	byID := make(map[string]*models.ContentObject)
	var ids []string
	for _, obj := range objs {
		if obj.Kind == models.KindSolution {
			byID[obj.ID] = obj
			ids = append(ids, obj.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT solution_id, issue_id FROM solution_issues
		WHERE solution_id IN (`+placeholders(1, len(ids))+`)
		ORDER BY issue_id`, stringArgs(ids)...)
	if err != nil {
		return unavailable("load issue links", err)
	}
	defer rows.Close()

	for rows.Next() {
		var solutionID, issueID string
		if err := rows.Scan(&solutionID, &issueID); err != nil {
			return unavailable("scan issue link", err)
		}
		if obj, ok := byID[solutionID]; ok {
			obj.IssueIDs = append(obj.IssueIDs, issueID)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("load issue links", err)
	}
	return nil
}

func scanObject(row scanner) (*models.ContentObject, error) {
	var (
		obj                            models.ContentObject
		kind                           string
		owner, org, parentKind, parent sql.NullString
	)
	err := row.Scan(&obj.ID, &kind, &owner, &org, &obj.Title, &obj.Body, &parentKind, &parent,
		&obj.SoftDeleted, &obj.CreatedAt, &obj.UpdatedAt)
	if err != nil {
		return nil, err
	}
	obj.Kind = models.Kind(kind)
	obj.OwnerID = stringPtr(owner)
	obj.OrganizationID = stringPtr(org)
	if parent.Valid {
		obj.Parent = &models.ObjectRef{Kind: models.Kind(parentKind.String), ID: parent.String}
	}
	return &obj, nil
}
