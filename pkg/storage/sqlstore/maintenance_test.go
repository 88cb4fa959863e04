package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/storage"
)

func TestFindLegacyVotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "a", "4000")
	seedUser(t, s, "b", "4000")
	issue := seedObject(t, s, models.KindIssue, "org1", time.Now())

	now := time.Now().UTC()
	for _, row := range []struct{ id, user, kind string }{
		{"v1", "a", "issue"},
		{"v2", "b", "Issue"},
	} {
		_, err := s.DB().Exec(`
			INSERT INTO votes (id, user_id, object_id, object_type, organization_id, vote_value, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			row.id, row.user, issue.ID, row.kind, "org1", 1.0, now, now)
		require.NoError(t, err)
	}

	legacy, err := s.FindLegacyVotes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, legacy, 1)
	assert.Equal(t, "v1", legacy[0].ID)
	assert.Equal(t, "issue", legacy[0].RawObjectType)
	assert.Equal(t, models.KindIssue, legacy[0].Object.Kind)

	require.NoError(t, s.NormalizeVoteObjectType(ctx, "v1", models.KindIssue))
	legacy, err = s.FindLegacyVotes(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, legacy)
}

func TestFindLegacyVotes_SkipsUnknownTypes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	issue := seedObject(t, s, models.KindIssue, "org1", time.Now())

	// a full batch of unknown types written before the fixable row
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"u1", "u2", "u3"} {
		seedUser(t, s, id, "")
		at := base.Add(time.Duration(i) * time.Minute)
		_, err := s.DB().Exec(`
			INSERT INTO votes (id, user_id, object_id, object_type, organization_id, vote_value, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			"junk-"+id, id, issue.ID, "widget", "org1", 1.0, at, at)
		require.NoError(t, err)
	}
	seedUser(t, s, "late", "")
	now := time.Now().UTC()
	_, err := s.DB().Exec(`
		INSERT INTO votes (id, user_id, object_id, object_type, organization_id, vote_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		"fixable", "late", issue.ID, "ISSUE", "org1", 1.0, now, now)
	require.NoError(t, err)

	legacy, err := s.FindLegacyVotes(ctx, 3)
	require.NoError(t, err)
	require.Len(t, legacy, 1)
	assert.Equal(t, "fixable", legacy[0].ID)
	assert.Equal(t, models.KindIssue, legacy[0].Object.Kind)
}

func TestFindLegacyVotes_Unavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, object_id, object_type").WillReturnError(errors.New("connection refused"))

	s := New(db, DriverPostgres)
	_, err = s.FindLegacyVotes(context.Background(), 10)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "a", "")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	require.NoError(t, s.CreateToken(ctx, "a", "expired", &past))
	require.NoError(t, s.CreateToken(ctx, "a", "live", &future))
	require.NoError(t, s.CreateToken(ctx, "a", "forever", nil))

	n, err := s.PurgeExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var remaining int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM api_tokens`).Scan(&remaining))
	assert.Equal(t, 2, remaining)
}
