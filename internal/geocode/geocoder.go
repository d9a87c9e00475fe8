// Package geocode resolves free-text location names to coordinates with a
// store-backed cache and a virtual-event fast path.
package geocode

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/campus-pulse/events-sync/internal/model"
	"github.com/campus-pulse/events-sync/pkg/places"
)

// virtualLocation matches online/remote designations that carry no physical
// place to geocode.
var virtualLocation = regexp.MustCompile(`(?i)online|zoom`)

// LocationCache is the slice of the store the geocoder needs.
type LocationCache interface {
	FindLocation(ctx context.Context, nameKey string) (*model.Coordinates, error)
	InsertLocation(ctx context.Context, nameKey string, entry model.LocationCacheEntry) error
}

// TextSearcher resolves a free-text query to a single location.
// *places.Client satisfies it.
type TextSearcher interface {
	SearchText(ctx context.Context, query string) (*places.LatLng, error)
}

// Geocoder resolves location names, consulting the cache before the
// external API. All failures are soft: the caller sees nil coordinates,
// never an error.
type Geocoder struct {
	cache  LocationCache
	places TextSearcher
}

// New creates a Geocoder over the given cache and search backend.
func New(cache LocationCache, places TextSearcher) *Geocoder {
	return &Geocoder{cache: cache, places: places}
}

// Resolve returns coordinates for the named location, or nil when the name
// is empty, virtual, or cannot be resolved. A successful external
// resolution is written back to the cache.
func (g *Geocoder) Resolve(ctx context.Context, name string) *model.Coordinates {
	log := zap.L().With(zap.String("component", "geocoder"), zap.String("location", name))

	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	if virtualLocation.MatchString(name) {
		log.Debug("virtual location, skipping geocoding")
		return nil
	}

	key := CacheKey(name)

	cached, err := g.cache.FindLocation(ctx, key)
	if err != nil {
		log.Warn("location cache lookup failed", zap.Error(err))
	} else if cached != nil {
		log.Debug("location cache hit")
		return cached
	}

	loc, err := g.places.SearchText(ctx, name)
	if err != nil {
		log.Warn("geocoding request failed", zap.Error(err))
		return nil
	}
	if loc == nil {
		log.Warn("no place found for location")
		return nil
	}

	coords := model.Coordinates{Lat: loc.Latitude, Lng: loc.Longitude}
	entry := model.LocationCacheEntry{Name: name, Coordinates: coords}
	if err := g.cache.InsertLocation(ctx, key, entry); err != nil {
		log.Warn("location cache write failed", zap.Error(err))
	}
	return &coords
}

// CacheKey normalizes a location name for cache lookup: NFC form, trimmed,
// case-folded, runs of whitespace collapsed.
func CacheKey(name string) string {
	key := norm.NFC.String(name)
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.Join(strings.Fields(key), " ")
}
