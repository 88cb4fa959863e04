package storage

import (
	"context"
	"time"

	"github.com/platinummonkey/agora/pkg/models"
)

// OrganizationReader resolves tenants
type OrganizationReader interface {
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// UserReader resolves users and their API tokens
type UserReader interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
}

// ContentReader reads tenant-scoped content objects
type ContentReader interface {
	GetObject(ctx context.Context, id string) (*models.ContentObject, error)
	ListObjects(ctx context.Context, filter ContentFilter) ([]*models.ContentObject, error)
	// FindSolutionsByIssues returns every live solution attached to any of
	// issueIDs, with IssueIDs populated.
	FindSolutionsByIssues(ctx context.Context, issueIDs []string) ([]*models.ContentObject, error)
}

// ContentWriter mutates content objects
type ContentWriter interface {
	CreateObject(ctx context.Context, obj *models.ContentObject) error
	UpdateObject(ctx context.Context, obj *models.ContentObject) error
	SoftDeleteObject(ctx context.Context, id string) error
}

// VoteReader fetches votes for the join
type VoteReader interface {
	// FindVotesByObjects returns every vote on any of objectIDs with Voter
	// populated from the casting user.
	FindVotesByObjects(ctx context.Context, objectIDs []string) ([]*models.Vote, error)
}

// VoteWriter persists votes
type VoteWriter interface {
	// UpsertVote inserts v, or updates the existing (object, user) row when
	// the uniqueness constraint rejects the insert. created reports which.
	UpsertVote(ctx context.Context, v *models.Vote) (created bool, err error)
	// NormalizeVoteObjectType rewrites a vote's stored discriminator.
	NormalizeVoteObjectType(ctx context.Context, voteID string, kind models.Kind) error
}

// RegionReader fetches geofence regions
type RegionReader interface {
	GetRegions(ctx context.Context, ids []string) ([]*models.Region, error)
}

// RegionWriter edits geofence regions
type RegionWriter interface {
	ReplacePostcodes(ctx context.Context, regionID string, postcodes []string) error
}

// HealthChecker reports backend health
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Store is the full persistence surface used by the service
type Store interface {
	OrganizationReader
	UserReader
	ContentReader
	ContentWriter
	VoteReader
	VoteWriter
	RegionReader
	RegionWriter
	HealthChecker
}

// ContentFilter narrows ListObjects
type ContentFilter struct {
	Kind           models.Kind
	OrganizationID *string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// Config for storage backend
type Config struct {
	Type string `yaml:"type"` // "postgres" or "sqlite"

	// PostgreSQL config
	PostgresURL      string        `yaml:"postgres_url"`
	PostgresMaxConns int           `yaml:"postgres_max_conns"`
	PostgresMinConns int           `yaml:"postgres_min_conns"`
	PostgresTimeout  time.Duration `yaml:"postgres_timeout"`

	// SQLite config
	SQLitePath string `yaml:"sqlite_path"`

	// Redis config
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`

	// Region cache config
	CacheEnabled   bool          `yaml:"cache_enabled"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	L1CacheEntries int           `yaml:"l1_cache_entries"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "sqlite",
		SQLitePath:       "agora.db",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     false,
		CacheTTL:         15 * time.Minute,
		L1CacheEntries:   1024,
	}
}
