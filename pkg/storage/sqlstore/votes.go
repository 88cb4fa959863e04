package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/agora/pkg/models"
)

// FindVotesByObjects returns every vote on objectIDs joined with the casting
// user's postcode fields. RawObjectType carries the discriminator exactly as
// stored so callers can detect legacy spellings.
func (s *Store) FindVotesByObjects(ctx context.Context, objectIDs []string) ([]*models.Vote, error) {
	objectIDs = uniqueStrings(objectIDs)
	if len(objectIDs) == 0 {
		return []*models.Vote{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.user_id, v.object_id, v.object_type, v.organization_id, v.vote_value,
		       v.created_at, v.updated_at,
		       COALESCE(u.postal_code, ''), COALESCE(u.woodfordian, '')
		FROM votes v
		LEFT JOIN users u ON u.id = v.user_id
		WHERE v.object_id IN (`+placeholders(1, len(objectIDs))+`)
		ORDER BY v.created_at, v.id`, stringArgs(objectIDs)...)
	if err != nil {
		return nil, unavailable("find votes", err)
	}
	defer rows.Close()

	votes := []*models.Vote{}
	for rows.Next() {
		var (
			v     models.Vote
			value float64
			voter models.Voter
		)
		if err := rows.Scan(&v.ID, &v.UserID, &v.Object.ID, &v.RawObjectType, &v.OrganizationID,
			&value, &v.CreatedAt, &v.UpdatedAt, &voter.PostalCode, &voter.Woodfordian); err != nil {
			return nil, unavailable("scan vote", err)
		}
		v.Value = models.VoteValue(value)
		v.Voter = &voter
		if kind, _, err := models.ParseKind(v.RawObjectType); err == nil {
			v.Object.Kind = kind
		} else {
			v.Object.Kind = models.Kind(v.RawObjectType)
		}
		votes = append(votes, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find votes", err)
	}
	return votes, nil
}

// UpsertVote inserts v and falls back to updating the existing row when the
// (object_id, user_id) constraint rejects the insert. The constraint is the
// source of truth; there is no read-before-write.
func (s *Store) UpsertVote(ctx context.Context, v *models.Vote) (bool, error) {
	now := s.now()
	id := v.ID
	if id == "" {
		id = s.newID()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (id, user_id, object_id, object_type, organization_id, vote_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, v.UserID, v.Object.ID, string(v.Object.Kind), v.OrganizationID, float64(v.Value), now, now)
	if err == nil {
		v.ID, v.CreatedAt, v.UpdatedAt = id, now, now
		return true, nil
	}
	if !isUniqueViolation(err) {
		return false, unavailable("insert vote", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE votes SET vote_value = $1, object_type = $2, organization_id = $3, updated_at = $4
		WHERE object_id = $5 AND user_id = $6`,
		float64(v.Value), string(v.Object.Kind), v.OrganizationID, now, v.Object.ID, v.UserID)
	if err != nil {
		return false, unavailable("update vote", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM votes WHERE object_id = $1 AND user_id = $2`, v.Object.ID, v.UserID)
	if err := row.Scan(&v.ID, &v.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, notFound("vote", v.Object.ID)
		}
		return false, unavailable("reload vote", err)
	}
	v.UpdatedAt = now
	return false, nil
}

// NormalizeVoteObjectType rewrites the stored discriminator of one vote
func (s *Store) NormalizeVoteObjectType(ctx context.Context, voteID string, kind models.Kind) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE votes SET object_type = $1 WHERE id = $2`, string(kind), voteID)
	if err != nil {
		return unavailable("normalize vote", err)
	}
	return nil
}
