package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/agora/pkg/access"
	"github.com/platinummonkey/agora/pkg/async"
	"github.com/platinummonkey/agora/pkg/auth"
	"github.com/platinummonkey/agora/pkg/middleware"
	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage/sqlstore"
	"github.com/platinummonkey/agora/pkg/votes"
)

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, regionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, regionID)
	return nil
}

type fixture struct {
	t       *testing.T
	store   *sqlstore.Store
	server  *Server
	org     *models.Organization
	region  *models.Region
	tokens  map[string]string
	regions *recordingInvalidator
}

type fixtureOption func(*Dependencies)

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open(sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	store := sqlstore.New(db, sqlstore.DriverSQLite)
	require.NoError(t, store.Migrate(ctx))

	users := []*models.User{
		{ID: "u-owner", Username: "owner", Roles: []models.Role{models.RoleUser}, Verified: true},
		{ID: "u-mod", Username: "mod", Roles: []models.Role{models.RoleUser}, Verified: true},
		{ID: "u-alice", Username: "alice", Roles: []models.Role{models.RoleUser}, Verified: true, PostalCode: "4000"},
		{ID: "u-bob", Username: "bob", Roles: []models.Role{models.RoleUser}, Verified: true, PostalCode: "2000"},
		{ID: "u-guest", Username: "guest", Roles: []models.Role{models.RoleGuest}},
		{ID: "u-admin", Username: "admin", Roles: []models.Role{models.RoleAdmin}, Verified: true},
	}
	tokens := auth.NewTokenManager(store)
	issued := make(map[string]string)
	for _, u := range users {
		require.NoError(t, store.CreateUser(ctx, u))
		token, err := tokens.Issue(ctx, u.ID, 0)
		require.NoError(t, err)
		issued[u.Username] = token
	}

	owner := "u-owner"
	org := &models.Organization{Name: "Acme", Slug: "acme", OwnerID: &owner, Moderators: []string{"u-mod"}}
	require.NoError(t, store.CreateOrganization(ctx, org))

	region := &models.Region{Name: "North", Type: "district", Postcodes: []string{"4000"}}
	require.NoError(t, store.CreateRegion(ctx, region))

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	joiner := votes.NewJoiner(store, votes.NewGeofenceResolver(store), metrics).WithLauncher(async.Inline)
	invalidator := &recordingInvalidator{}

	deps := Dependencies{
		Store:       store,
		Tokens:      tokens,
		Engine:      access.NewEngine(nil, access.NewOwnershipResolver(store), metrics),
		Joiner:      joiner,
		Aggregator:  votes.NewAggregator(store, joiner, metrics),
		Caster:      votes.NewCaster(store, metrics),
		RegionCache: invalidator,
		Health:      observability.NewHealthChecker(store, nil),
		Metrics:     metrics,
		Registry:    registry,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &fixture{
		t:       t,
		store:   store,
		server:  NewServer(deps),
		org:     org,
		region:  region,
		tokens:  issued,
		regions: invalidator,
	}
}

// do sends a request as user (empty for anonymous) within the acme tenant
func (f *fixture) do(method, path, user string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.OrgHeader, f.org.Slug)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+f.tokens[user])
	}

	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	return w
}

func (f *fixture) create(kind, user string, body interface{}) *models.ContentObject {
	f.t.Helper()
	w := f.do(http.MethodPost, "/api/v1/"+kind, user, body)
	require.Equal(f.t, http.StatusCreated, w.Code, w.Body.String())
	var obj models.ContentObject
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &obj))
	return &obj
}

func (f *fixture) vote(user, objectID, objectType string, value float64) *httptest.ResponseRecorder {
	f.t.Helper()
	return f.do(http.MethodPost, "/api/v1/votes", user, map[string]interface{}{
		"object":     objectID,
		"objectType": objectType,
		"voteValue":  value,
	})
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreate_OwnerAndOrganizationFromRequest(t *testing.T) {
	f := newFixture(t)

	issue := f.create("issues", "alice", map[string]interface{}{"title": "Potholes", "body": "Main St"})

	assert.Equal(t, models.KindIssue, issue.Kind)
	require.NotNil(t, issue.OwnerID)
	assert.Equal(t, "u-alice", *issue.OwnerID)
	require.NotNil(t, issue.OrganizationID)
	assert.Equal(t, f.org.ID, *issue.OrganizationID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/v1/issues", "alice", map[string]interface{}{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/issues", "alice", map[string]interface{}{"title": "x", "issues": []string{"i1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreate_RequiresJSONBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/issues", bytes.NewBufferString("title=Potholes"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.OrgHeader, f.org.Slug)
	req.Header.Set("Authorization", "Bearer "+f.tokens["alice"])
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/issues", bytes.NewBufferString(`{"title":"Potholes"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set(middleware.OrgHeader, f.org.Slug)
	req.Header.Set("Authorization", "Bearer "+f.tokens["alice"])
	w = httptest.NewRecorder()
	f.server.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestAccessOutcomesOverHTTP(t *testing.T) {
	f := newFixture(t)
	issue := f.create("issues", "alice", map[string]interface{}{"title": "Potholes"})
	object := "/api/v1/issues/" + issue.ID

	t.Run("anonymous write needs authentication", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/issues", "", map[string]interface{}{"title": "x"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Authentication required", decodeMessage(t, w)["message"])
	})

	t.Run("guest write needs verification", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/issues", "guest", map[string]interface{}{"title": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "user", decodeMessage(t, w)["role"])
	})

	t.Run("verified stranger is forbidden", func(t *testing.T) {
		w := f.do(http.MethodPut, object, "bob", map[string]interface{}{"title": "mine now"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		_, hasRole := decodeMessage(t, w)["role"]
		assert.False(t, hasRole)
	})

	t.Run("author may edit", func(t *testing.T) {
		w := f.do(http.MethodPut, object, "alice", map[string]interface{}{"body": "deep ones"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var obj models.ContentObject
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &obj))
		assert.Equal(t, "Potholes", obj.Title)
		assert.Equal(t, "deep ones", obj.Body)
	})

	t.Run("moderator may edit", func(t *testing.T) {
		w := f.do(http.MethodPut, object, "mod", map[string]interface{}{"title": "Potholes (moderated)"})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("anonymous read allowed", func(t *testing.T) {
		w := f.do(http.MethodGet, object, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/issues", nil)
		req.Header.Set("Authorization", "Bearer agora_nope")
		w := httptest.NewRecorder()
		f.server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/issues", nil)
		req.Header.Set(middleware.OrgHeader, "nowhere")
		w := httptest.NewRecorder()
		f.server.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDelete_IsSoft(t *testing.T) {
	f := newFixture(t)
	issue := f.create("issues", "alice", map[string]interface{}{"title": "Graffiti"})
	object := "/api/v1/issues/" + issue.ID

	w := f.do(http.MethodDelete, object, "alice", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, object, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/issues", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.ContentObject
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)

	stored, err := f.store.GetObject(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.True(t, stored.SoftDeleted)
}

func TestGet_WrongKindIsNotFound(t *testing.T) {
	f := newFixture(t)
	issue := f.create("issues", "alice", map[string]interface{}{"title": "Graffiti"})

	w := f.do(http.MethodGet, "/api/v1/topics/"+issue.ID, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVotes_CastUpdateAndTally(t *testing.T) {
	f := newFixture(t)
	issue := f.create("issues", "alice", map[string]interface{}{"title": "Potholes"})

	w := f.vote("alice", issue.ID, "Issue", 1)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.vote("alice", issue.ID, "issue", 0.5)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.vote("bob", issue.ID, "Issue", -1)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(http.MethodGet, "/api/v1/issues/"+issue.ID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.ContentObject
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotNil(t, got.Votes)
	assert.Equal(t, 1, got.Votes.Up)
	assert.Equal(t, 1, got.Votes.Down)
	assert.Equal(t, 2, got.Votes.Total)
	require.NotNil(t, got.Votes.CurrentUser)
	assert.Equal(t, models.VoteValue(0.5), got.Votes.CurrentUser.Value)
	require.NotNil(t, got.Meta)
	assert.Equal(t, 0, got.Meta.SolutionCount)
}

func TestVotes_Errors(t *testing.T) {
	f := newFixture(t)
	issue := f.create("issues", "alice", map[string]interface{}{"title": "Potholes"})

	assert.Equal(t, http.StatusBadRequest, f.vote("alice", issue.ID, "Issue", 0.3).Code)
	assert.Equal(t, http.StatusBadRequest, f.vote("alice", issue.ID, "Topic", 1).Code)
	assert.Equal(t, http.StatusNotFound, f.vote("alice", "missing", "Issue", 1).Code)
	assert.Equal(t, http.StatusUnauthorized, f.vote("", issue.ID, "Issue", 1).Code)
}

func TestList_RegionFilterAndIssueMetadata(t *testing.T) {
	f := newFixture(t)
	issue := f.create("issues", "alice", map[string]interface{}{"title": "Potholes"})
	solution := f.create("solutions", "bob", map[string]interface{}{"title": "Fill them", "issues": []string{issue.ID}})

	require.Equal(t, http.StatusCreated, f.vote("alice", solution.ID, "Solution", 1).Code)
	require.Equal(t, http.StatusCreated, f.vote("bob", solution.ID, "Solution", 1).Code)
	require.Equal(t, http.StatusCreated, f.vote("alice", issue.ID, "Issue", 1).Code)
	require.Equal(t, http.StatusCreated, f.vote("bob", issue.ID, "Issue", -1).Code)

	region := url.QueryEscape(`{"_id":"` + f.region.ID + `"}`)
	w := f.do(http.MethodGet, "/api/v1/issues?region="+region, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list []models.ContentObject
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// only alice lives in the region
	require.NotNil(t, list[0].Votes)
	assert.Equal(t, 1, list[0].Votes.Up)
	assert.Equal(t, 0, list[0].Votes.Down)
	assert.Nil(t, list[0].Votes.CurrentUser)

	// metadata ignores the region filter
	require.NotNil(t, list[0].Meta)
	assert.Equal(t, 1, list[0].Meta.SolutionCount)
	assert.Equal(t, 2, list[0].Meta.Votes.Up)
	assert.Greater(t, list[0].Meta.TotalTrendingScore, 0.0)
}

func TestList_BadQuery(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/issues?region=nope", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/v1/issues?limit=-1", "", nil).Code)

	region := url.QueryEscape(`{"_id":"missing"}`)
	f.create("issues", "alice", map[string]interface{}{"title": "Potholes"})
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/issues?region="+region, "", nil).Code)
}

func TestRegions_ReplacePostcodes(t *testing.T) {
	f := newFixture(t)
	path := "/api/v1/regions/" + f.region.ID + "/postcodes"
	body := map[string]interface{}{"postcodes": []string{"2000", "4000"}}

	w := f.do(http.MethodPut, path, "alice", body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, f.regions.ids)

	w = f.do(http.MethodPut, path, "admin", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{f.region.ID}, f.regions.ids)

	regions, err := f.store.GetRegions(context.Background(), []string{f.region.ID})
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.ElementsMatch(t, []string{"2000", "4000"}, regions[0].Postcodes)

	// the response reflects what was stored, not the raw request
	w = f.do(http.MethodPut, path, "admin", map[string]interface{}{"postcodes": []string{"2000", "", "2000", "4101"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp RegionPostcodesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, f.region.ID, resp.ID)
	assert.ElementsMatch(t, []string{"2000", "4101"}, resp.Postcodes)

	w = f.do(http.MethodPut, "/api/v1/regions/missing/postcodes", "admin", body)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPut, path, "admin", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVotes_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	limiter := middleware.NewRateLimiter(client, middleware.RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}, "")

	f := newFixture(t, func(d *Dependencies) { d.VoteLimiter = limiter })
	issue := f.create("issues", "alice", map[string]interface{}{"title": "Potholes"})

	assert.Equal(t, http.StatusCreated, f.vote("alice", issue.ID, "Issue", 1).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.vote("alice", issue.ID, "Issue", -1).Code)
	assert.Equal(t, http.StatusCreated, f.vote("bob", issue.ID, "Issue", -1).Code)
}

func TestOperationalRoutes(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	f.create("issues", "alice", map[string]interface{}{"title": "Potholes"})
	w = f.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "agora_access_decisions_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/{type:`)

	w = f.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_WrapsRouter(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
