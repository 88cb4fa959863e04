package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/platinummonkey/agora/pkg/models"
)

// FindLegacyVotes returns up to limit votes whose stored discriminator is a
// content kind in a non-canonical spelling, oldest first. Rows whose type
// matches no kind in any case are never returned, so they cannot crowd
// fixable rows out of a batch.
func (s *Store) FindLegacyVotes(ctx context.Context, limit int) ([]*models.Vote, error) {
	n := len(models.ContentKinds)
	canonical := make([]string, 0, n)
	lowered := make([]string, 0, n)
	for _, k := range models.ContentKinds {
		canonical = append(canonical, string(k))
		lowered = append(lowered, strings.ToLower(string(k)))
	}
	args := append(stringArgs(canonical), stringArgs(lowered)...)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, object_id, object_type
		FROM votes
		WHERE object_type NOT IN (%s)
		  AND LOWER(object_type) IN (%s)
		ORDER BY created_at, id
		LIMIT $%d`, placeholders(1, n), placeholders(n+1, n), len(args)), args...)
	if err != nil {
		return nil, unavailable("find legacy votes", err)
	}
	defer rows.Close()

	votes := []*models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.Object.ID, &v.RawObjectType); err != nil {
			return nil, unavailable("scan legacy vote", err)
		}
		if kind, _, err := models.ParseKind(v.RawObjectType); err == nil {
			v.Object.Kind = kind
		}
		votes = append(votes, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find legacy votes", err)
	}
	return votes, nil
}

// PurgeExpiredTokens deletes API tokens past their expiry
func (s *Store) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM api_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.now())
	if err != nil {
		return 0, unavailable("purge tokens", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("purge tokens", err)
	}
	return n, nil
}
