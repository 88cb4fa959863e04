package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/storage"
)

func TestUpsertVote_SecondVoteUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "voter", "4000")
	issue := seedObject(t, s, models.KindIssue, "org1", time.Now())

	first := &models.Vote{UserID: "voter", Object: issue.Ref(), OrganizationID: "org1", Value: 1}
	created, err := s.UpsertVote(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, first.ID)

	second := &models.Vote{UserID: "voter", Object: issue.Ref(), OrganizationID: "org1", Value: -0.5}
	created, err = s.UpsertVote(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	votes, err := s.FindVotesByObjects(ctx, []string{issue.ID})
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, models.VoteValue(-0.5), votes[0].Value)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM votes WHERE object_id = $1`, issue.ID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestFindVotesByObjects_JoinsVoterAndKeepsRawType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedUser(t, s, "a", "4000")
	issue := seedObject(t, s, models.KindIssue, "org1", time.Now())

	_, err := s.DB().Exec(`
		INSERT INTO votes (id, user_id, object_id, object_type, organization_id, vote_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		"v1", "a", issue.ID, "issue", "org1", 1.0, time.Now().UTC(), time.Now().UTC())
	require.NoError(t, err)

	votes, err := s.FindVotesByObjects(ctx, []string{issue.ID, issue.ID})
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "issue", votes[0].RawObjectType)
	assert.Equal(t, models.KindIssue, votes[0].Object.Kind)
	require.NotNil(t, votes[0].Voter)
	assert.Equal(t, "4000", votes[0].Voter.PostalCode)

	require.NoError(t, s.NormalizeVoteObjectType(ctx, "v1", models.KindIssue))
	votes, err = s.FindVotesByObjects(ctx, []string{issue.ID})
	require.NoError(t, err)
	assert.Equal(t, "Issue", votes[0].RawObjectType)
}

func TestFindVotesByObjects_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := New(db, DriverPostgres)
	votes, err := s.FindVotesByObjects(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, votes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindVotesByObjects_Unavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM votes").WillReturnError(errors.New("connection refused"))

	s := New(db, DriverPostgres)
	votes, err := s.FindVotesByObjects(context.Background(), []string{"o1"})
	assert.Nil(t, votes)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertVote_PostgresConflictFallsBackToUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO votes").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectExec("UPDATE votes SET vote_value").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, created_at FROM votes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing", created))

	s := New(db, DriverPostgres)
	v := &models.Vote{UserID: "u", Object: models.ObjectRef{Kind: models.KindIssue, ID: "o"}, Value: 1}
	wasCreated, err := s.UpsertVote(context.Background(), v)
	require.NoError(t, err)
	assert.False(t, wasCreated)
	assert.Equal(t, "existing", v.ID)
	assert.Equal(t, created, v.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertVote_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO votes").WillReturnError(errors.New("disk full"))

	s := New(db, DriverPostgres)
	_, err = s.UpsertVote(context.Background(), &models.Vote{UserID: "u", Object: models.ObjectRef{Kind: models.KindIssue, ID: "o"}})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, isUniqueViolation(sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}
