package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pulse/events-sync/internal/model"
	"github.com/campus-pulse/events-sync/pkg/places"
)

// memCache is an in-memory LocationCache.
type memCache struct {
	entries map[string]model.Coordinates
	findErr error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]model.Coordinates{}}
}

func (m *memCache) FindLocation(_ context.Context, nameKey string) (*model.Coordinates, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if c, ok := m.entries[nameKey]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memCache) InsertLocation(_ context.Context, nameKey string, entry model.LocationCacheEntry) error {
	m.entries[nameKey] = entry.Coordinates
	return nil
}

// fakeSearcher counts calls and serves a fixed answer.
type fakeSearcher struct {
	calls int
	loc   *places.LatLng
	err   error
}

func (f *fakeSearcher) SearchText(context.Context, string) (*places.LatLng, error) {
	f.calls++
	return f.loc, f.err
}

func TestResolve_EmptyName(t *testing.T) {
	s := &fakeSearcher{}
	g := New(newMemCache(), s)

	assert.Nil(t, g.Resolve(context.Background(), ""))
	assert.Nil(t, g.Resolve(context.Background(), "   "))
	assert.Zero(t, s.calls)
}

func TestResolve_VirtualLocations(t *testing.T) {
	s := &fakeSearcher{loc: &places.LatLng{Latitude: 1, Longitude: 2}}
	cache := newMemCache()
	g := New(cache, s)

	for _, name := range []string{"Online", "online", "Zoom", "Via Zoom (link TBD)", "ONLINE - Webinar"} {
		assert.Nil(t, g.Resolve(context.Background(), name), "name: %q", name)
	}
	assert.Zero(t, s.calls, "virtual locations must not reach the API")
	assert.Empty(t, cache.entries, "virtual locations must not be cached")
}

func TestResolve_CacheMissThenHit(t *testing.T) {
	s := &fakeSearcher{loc: &places.LatLng{Latitude: 53.5264, Longitude: -113.5243}}
	cache := newMemCache()
	g := New(cache, s)

	first := g.Resolve(context.Background(), "Main Quad")
	require.NotNil(t, first)
	assert.InDelta(t, 53.5264, first.Lat, 1e-9)
	assert.Equal(t, 1, s.calls)

	second := g.Resolve(context.Background(), "Main Quad")
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
	assert.Equal(t, 1, s.calls, "second lookup must come from cache")
}

func TestResolve_CacheKeyNormalization(t *testing.T) {
	s := &fakeSearcher{loc: &places.LatLng{Latitude: 1, Longitude: 2}}
	g := New(newMemCache(), s)

	require.NotNil(t, g.Resolve(context.Background(), "Main Quad"))
	require.NotNil(t, g.Resolve(context.Background(), "  main   QUAD "))
	assert.Equal(t, 1, s.calls, "spelling variants must share a cache entry")
}

func TestResolve_NoPlaceFound(t *testing.T) {
	s := &fakeSearcher{loc: nil}
	cache := newMemCache()
	g := New(cache, s)

	assert.Nil(t, g.Resolve(context.Background(), "Nowhere Hall"))
	assert.Empty(t, cache.entries, "misses are not cached")
}

func TestResolve_APIErrorIsSoft(t *testing.T) {
	s := &fakeSearcher{err: eris.New("api down")}
	g := New(newMemCache(), s)

	assert.Nil(t, g.Resolve(context.Background(), "CCIS"))
}

func TestResolve_CacheErrorFallsThroughToAPI(t *testing.T) {
	s := &fakeSearcher{loc: &places.LatLng{Latitude: 1, Longitude: 2}}
	cache := newMemCache()
	cache.findErr = eris.New("cache down")
	g := New(cache, s)

	got := g.Resolve(context.Background(), "CCIS")
	require.NotNil(t, got)
	assert.Equal(t, 1, s.calls)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "main quad", CacheKey("  Main   Quad "))
	assert.Equal(t, "ccis 1-430", CacheKey("CCIS 1-430"))
}
