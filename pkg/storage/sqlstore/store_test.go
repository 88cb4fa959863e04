package sqlstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/agora/pkg/models"
)

// newTestStore returns a store on a private in-memory SQLite database
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := New(db, DriverSQLite)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, s *Store, id, postcode string) *models.User {
	t.Helper()
	u := &models.User{
		ID:         id,
		Username:   id,
		Roles:      []models.Role{models.RoleUser},
		Verified:   true,
		PostalCode: postcode,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedObject(t *testing.T, s *Store, kind models.Kind, orgID string, createdAt time.Time, issueIDs ...string) *models.ContentObject {
	t.Helper()
	obj := &models.ContentObject{
		Kind:           kind,
		OwnerID:        strPtr("author"),
		OrganizationID: strPtr(orgID),
		Title:          string(kind),
		IssueIDs:       issueIDs,
		CreatedAt:      createdAt,
	}
	require.NoError(t, s.CreateObject(context.Background(), obj))
	return obj
}
