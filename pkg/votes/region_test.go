package votes

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/agora/pkg/models"
	"github.com/platinummonkey/agora/pkg/observability"
	"github.com/platinummonkey/agora/pkg/storage"
)

func TestParseRegionRefs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []RegionRef
		wantErr bool
	}{
		{name: "empty", raw: ""},
		{name: "single", raw: `{"_id":"r1"}`, want: []RegionRef{{ID: "r1"}}},
		{name: "array", raw: ` [{"_id":"r1"},{"_id":"r2"}] `, want: []RegionRef{{ID: "r1"}, {ID: "r2"}}},
		{name: "missing id", raw: `{"name":"x"}`, wantErr: true},
		{name: "not json", raw: `r1`, wantErr: true},
		{name: "bad array", raw: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRegionRefs(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRegion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func regionFixture() *fakeRegions {
	return &fakeRegions{regions: map[string]*models.Region{
		"north": {ID: "north", Postcodes: []string{"4000", "4001"}},
		"south": {ID: "south", Postcodes: []string{"4001", "4101"}},
	}}
}

func TestGeofenceResolver_UnionsAndDedupes(t *testing.T) {
	resolver := NewGeofenceResolver(regionFixture())

	pcs, err := resolver.PostcodesFor(context.Background(), []string{"north", "south"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4000", "4001", "4101"}, pcs)
}

func TestGeofenceResolver_MissingRegion(t *testing.T) {
	resolver := NewGeofenceResolver(regionFixture())

	_, err := resolver.PostcodesFor(context.Background(), []string{"north", "atlantis"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func newCachedResolver(t *testing.T, regions *fakeRegions) (*CachedResolver, *miniredis.Miniredis, *observability.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	cached := NewCachedResolver(NewGeofenceResolver(regions), client, CacheConfig{Entries: 16, TTL: time.Minute}, metrics)
	return cached, mr, metrics
}

func TestCachedResolver_MemoisesByRegion(t *testing.T) {
	regions := regionFixture()
	cached, mr, metrics := newCachedResolver(t, regions)
	ctx := context.Background()

	pcs, err := cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4000", "4001"}, pcs)
	assert.Equal(t, 1, regions.calls)
	assert.True(t, mr.Exists(regionKey("north")))

	pcs, err = cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4000", "4001"}, pcs)
	assert.Equal(t, 1, regions.calls, "second read is served from memory")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("memory")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMissesTotal))

	// only the unseen region goes to the store
	pcs, err = cached.PostcodesFor(ctx, []string{"north", "south"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4000", "4001", "4101"}, pcs)
	assert.Equal(t, 2, regions.calls)
}

func TestCachedResolver_RedisTier(t *testing.T) {
	regions := regionFixture()
	cached, _, metrics := newCachedResolver(t, regions)
	ctx := context.Background()

	_, err := cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)

	// drop only the memory tier
	cached.local.Purge()

	pcs, err := cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4000", "4001"}, pcs)
	assert.Equal(t, 1, regions.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("redis")))
}

func TestCachedResolver_Invalidate(t *testing.T) {
	regions := regionFixture()
	cached, mr, _ := newCachedResolver(t, regions)
	ctx := context.Background()

	_, err := cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)

	regions.regions["north"] = &models.Region{ID: "north", Postcodes: []string{"4999"}}
	require.NoError(t, cached.Invalidate(ctx, "north"))
	assert.False(t, mr.Exists(regionKey("north")))

	pcs, err := cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4999"}, pcs)
	assert.Equal(t, 2, regions.calls)
}

func TestCachedResolver_RedisDownFallsThrough(t *testing.T) {
	regions := regionFixture()
	cached, mr, _ := newCachedResolver(t, regions)
	mr.Close()

	pcs, err := cached.PostcodesFor(context.Background(), []string{"south"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4001", "4101"}, pcs)
}

func TestCachedResolver_WithoutRedis(t *testing.T) {
	regions := regionFixture()
	cached := NewCachedResolver(NewGeofenceResolver(regions), nil, CacheConfig{}, nil)
	ctx := context.Background()

	_, err := cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)
	_, err = cached.PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)
	assert.Equal(t, 1, regions.calls)
	require.NoError(t, cached.Invalidate(ctx, "north"))

	_, err = cached.PostcodesFor(ctx, []string{"atlantis"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// gatedRegions captures the stored regions, then blocks until released
type gatedRegions struct {
	store   *fakeRegions
	started chan struct{}
	release chan struct{}
}

func (g *gatedRegions) GetRegions(ctx context.Context, ids []string) ([]*models.Region, error) {
	snapshot, err := g.store.GetRegions(ctx, ids)
	close(g.started)
	<-g.release
	return snapshot, err
}

func TestCachedResolver_InvalidateDuringStoreRead(t *testing.T) {
	regions := &fakeRegions{regions: map[string]*models.Region{
		"north": {ID: "north", Postcodes: []string{"4000"}},
	}}
	gated := &gatedRegions{store: regions, started: make(chan struct{}), release: make(chan struct{})}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	cached := NewCachedResolver(NewGeofenceResolver(gated), client, CacheConfig{Entries: 16, TTL: time.Minute}, nil)
	ctx := context.Background()

	done := make(chan []string, 1)
	go func() {
		pcs, err := cached.PostcodesFor(ctx, []string{"north"})
		assert.NoError(t, err)
		done <- pcs
	}()

	<-gated.started
	regions.regions["north"] = &models.Region{ID: "north", Postcodes: []string{"9999"}}
	require.NoError(t, cached.Invalidate(ctx, "north"))
	close(gated.release)

	// the in-flight caller still sees what it read
	assert.Equal(t, []string{"4000"}, <-done)

	_, present := cached.local.Get("north")
	assert.False(t, present, "read from before the update must not be cached")
	assert.False(t, mr.Exists(regionKey("north")))

	pcs, err := NewCachedResolver(NewGeofenceResolver(regions), client, CacheConfig{}, nil).PostcodesFor(ctx, []string{"north"})
	require.NoError(t, err)
	assert.Equal(t, []string{"9999"}, pcs)
}
