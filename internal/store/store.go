// Package store persists events and the geocode location cache.
package store

import (
	"context"

	"github.com/campus-pulse/events-sync/internal/model"
)

// Store defines the persistence interface for the sync pipeline.
//
// Events are matched by title; duplicate titles are tolerated and lookups
// take the first match. Location cache entries are keyed by a normalized
// name key computed by the caller and are insert-only.
type Store interface {
	// Events
	FindEventByTitle(ctx context.Context, title string) (*model.Event, error)
	InsertEvent(ctx context.Context, ev model.Event) error
	UpdateEventFields(ctx context.Context, title string, fields map[string]any) error
	ListEventsMissingCoordinates(ctx context.Context, limit int) ([]model.Event, error)
	SetEventCoordinates(ctx context.Context, title string, coords model.Coordinates) error

	// Location cache
	FindLocation(ctx context.Context, nameKey string) (*model.Coordinates, error)
	InsertLocation(ctx context.Context, nameKey string, entry model.LocationCacheEntry) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// eventColumns whitelists the columns UpdateEventFields may touch. Keys
// match what model.Event.Diff produces.
var eventColumns = map[string]bool{
	"title":       true,
	"description": true,
	"start_date":  true,
	"end_date":    true,
	"start_time":  true,
	"end_time":    true,
	"location":    true,
	"image_url":   true,
	"link":        true,
}
